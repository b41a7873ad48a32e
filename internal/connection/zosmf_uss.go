package connection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

func fsPath(path string) string {
	return "/zosmf/restfiles/fs" + (&url.URL{Path: path}).EscapedPath()
}

func dataType(binary bool) string {
	if binary {
		return "binary"
	}
	return "text"
}

type fsListResponse struct {
	Items        []UnixFile `json:"items"`
	ReturnedRows int        `json:"returnedRows"`
	TotalRows    int        `json:"totalRows"`
}

func (z *ZOSMFConnection) ListFiles(ctx context.Context, path string, depth int) ([]UnixFile, error) {
	const op = "list files"
	params := url.Values{}
	params.Set("path", path)
	if depth > 0 {
		params.Set("depth", strconv.Itoa(depth))
	}

	resp, err := z.doRequest(ctx, op, http.MethodGet, "/zosmf/restfiles/fs?"+params.Encode(), nil,
		"X-IBM-Max-Items", "0")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, zosmfError(fmt.Sprintf("failed to list %s", path), resp)
	}

	var result fsListResponse
	if err := decodeBody(op, resp, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (z *ZOSMFConnection) ReadFile(ctx context.Context, path string, binary bool) ([]byte, error) {
	resp, err := z.doRequest(ctx, "read file", http.MethodGet, fsPath(path), nil,
		"X-IBM-Data-Type", dataType(binary))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, zosmfError(fmt.Sprintf("failed to read %s", path), resp)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// StatFile runs a case-sensitive search request against path. z/OSMF
// answers 404 when the path does not resolve to a file.
func (z *ZOSMFConnection) StatFile(ctx context.Context, path string) error {
	params := url.Values{}
	params.Set("insensitive", "false")
	params.Set("search", path)

	resp, err := z.doRequest(ctx, "stat file", http.MethodGet, fsPath(path)+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return zosmfError(fmt.Sprintf("failed to stat %s", path), resp)
	}
	discardBody(resp)
	return nil
}

func (z *ZOSMFConnection) CreateFile(ctx context.Context, path string, typ CreateType, mode string) error {
	payload := map[string]string{"type": string(typ), "mode": mode}
	resp, err := z.doJSON(ctx, "create file", http.MethodPost, fsPath(path), payload)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if !isSuccess(resp) {
		return zosmfError(fmt.Sprintf("failed to create %s", path), resp)
	}
	discardBody(resp)
	return nil
}

func (z *ZOSMFConnection) DeleteFile(ctx context.Context, path string, recursive bool) error {
	var headers []string
	if recursive {
		headers = []string{"X-IBM-Option", "recursive"}
	}
	resp, err := z.doRequest(ctx, "delete file", http.MethodDelete, fsPath(path), nil, headers...)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	if !isSuccess(resp) {
		return zosmfError(fmt.Sprintf("failed to delete %s", path), resp)
	}
	discardBody(resp)
	return nil
}

func (z *ZOSMFConnection) WriteFile(ctx context.Context, path string, content []byte, binary bool) error {
	contentType := "text/plain"
	if binary {
		contentType = "application/octet-stream"
	}
	resp, err := z.doRequest(ctx, "write file", http.MethodPut, fsPath(path), bytes.NewReader(content),
		"X-IBM-Data-Type", dataType(binary), "Content-Type", contentType)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		return zosmfError(fmt.Sprintf("failed to write %s", path), resp)
	}
	resp.Body.Close()

	return nil
}

func (z *ZOSMFConnection) ChangeMode(ctx context.Context, path, mode string) error {
	payload := map[string]any{"request": "chmod", "mode": mode, "recursive": false}
	resp, err := z.doJSON(ctx, "change mode", http.MethodPut, fsPath(path), payload)
	if err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if !isSuccess(resp) {
		return zosmfError(fmt.Sprintf("failed to chmod %s", path), resp)
	}
	discardBody(resp)
	return nil
}
