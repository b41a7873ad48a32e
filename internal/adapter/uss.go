package adapter

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"zadapt/internal/connection"
)

// FolderMode is the mode new directories are created with.
const FolderMode = "rwxr-xr-x"

var octalMode = regexp.MustCompile(`^[0-7]{3,4}$`)

// UnixEntry is one row of a USS directory listing.
type UnixEntry struct {
	ParentPath   string
	Name         string
	Size         int64
	Directory    bool
	User         string
	Group        string
	Permissions  string // mode without the type character
	LastModified time.Time
	Symlink      bool
	LinkPath     string // set for symlinks only
}

func (e UnixEntry) Attributes() *Response {
	r := &Response{}
	r.Add(KeyHFSParentPath, e.ParentPath)
	r.AddUntrimmed(KeyName, e.Name)
	r.Add(KeyHFSSize, e.Size)
	r.Add(KeyHFSDirectory, e.Directory)
	r.Add(KeyHFSUser, e.User)
	r.Add(KeyHFSGroup, e.Group)
	r.Add(KeyHFSPermissions, e.Permissions)
	r.Add(KeyHFSLastUsedDate, e.LastModified)
	r.Add(KeyHFSSymlink, e.Symlink)
	if e.Symlink {
		r.Add(KeyHFSLinkPath, e.LinkPath)
	}
	return r
}

// USSAdapter translates file requests into calls on a FileService. Every
// path is normalized before it is sent.
type USSAdapter struct {
	files FileService
	log   *zap.Logger
}

func NewUSSAdapter(files FileService, log *zap.Logger) *USSAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &USSAdapter{files: files, log: log.Named("uss")}
}

// List returns the children of path. "." and ".." are always left out;
// other dot-files are left out unless includeHidden is set. A symlink
// costs one extra probe to find out whether it points at a directory.
func (a *USSAdapter) List(ctx context.Context, path string, includeHidden bool) ([]UnixEntry, error) {
	const op = "list"
	path = NormalizePath(path)
	a.log.Debug("getHFSChildren", zap.String("path", path), zap.Bool("include_hidden", includeHidden))

	items, err := a.files.ListFiles(ctx, path, 1)
	if err != nil {
		return nil, connectionError(op, path, err)
	}

	entries := make([]UnixEntry, 0, len(items))
	for _, item := range items {
		name, ok := present(item.Name)
		if !ok || name == "." || name == ".." {
			continue
		}
		if !includeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		entry, err := a.convertEntry(ctx, path, name, item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (a *USSAdapter) convertEntry(ctx context.Context, parent, name string, item connection.UnixFile) (UnixEntry, error) {
	entry := UnixEntry{
		ParentPath:   parent,
		Name:         name,
		User:         orUnknown(item.User),
		Group:        orUnknown(item.Group),
		Permissions:  Unknown,
		LastModified: mtime(a.log, JoinPath(parent, name), item.Mtime),
	}
	if item.Size != nil {
		entry.Size = *item.Size
	}

	mode, ok := present(item.Mode)
	if !ok {
		return entry, nil
	}
	entry.Permissions = mode[1:]
	entry.Directory = mode[0] == 'd'

	if mode[0] == 'l' {
		entry.Symlink = true
		entry.LinkPath = orUnknown(item.Target)
		if _, ok := present(item.Target); ok {
			dir, err := a.isDirectory(ctx, JoinPath(parent, name))
			if err != nil {
				return UnixEntry{}, err
			}
			entry.Directory = dir
		}
	}
	return entry, nil
}

// isDirectory probes a symlink's path. A file-level stat only succeeds
// for files, so a not-found answer means the link points at a directory.
func (a *USSAdapter) isDirectory(ctx context.Context, path string) (bool, error) {
	err := a.probe(ctx, "resolve symlink", path)
	switch {
	case err == nil:
		return false, nil
	case IsKind(err, KindNotFound):
		return true, nil
	default:
		return false, err
	}
}

func (a *USSAdapter) probe(ctx context.Context, op, path string) error {
	err := a.files.StatFile(ctx, path)
	switch {
	case err == nil:
		return nil
	case connection.IsNotFound(err):
		return &Error{Kind: KindNotFound, Op: op, Subject: path, Err: err}
	default:
		return connectionError(op, path, err)
	}
}

// Exists reports whether path names an existing file.
func (a *USSAdapter) Exists(ctx context.Context, path string) (bool, error) {
	path = NormalizePath(path)
	a.log.Debug("existsHFS", zap.String("path", path))

	err := a.probe(ctx, "exists", path)
	switch {
	case err == nil:
		return true, nil
	case IsKind(err, KindNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (a *USSAdapter) ExistsFile(ctx context.Context, dir, name string) (bool, error) {
	return a.Exists(ctx, JoinPath(dir, name))
}

func (a *USSAdapter) CreateFolder(ctx context.Context, path string) error {
	path = NormalizePath(path)
	a.log.Debug("createFolderHFS", zap.String("path", path))

	if err := a.files.CreateFile(ctx, path, connection.CreateDir, FolderMode); err != nil {
		return connectionError("create folder", path, err)
	}
	return nil
}

// Delete removes path and, for a directory, everything below it.
func (a *USSAdapter) Delete(ctx context.Context, path string) error {
	path = NormalizePath(path)
	a.log.Debug("deletePathHFS", zap.String("path", path))

	if err := a.files.DeleteFile(ctx, path, true); err != nil {
		return connectionError("delete", path, err)
	}
	return nil
}

func (a *USSAdapter) Read(ctx context.Context, path string, binary bool) ([]byte, error) {
	path = NormalizePath(path)
	a.log.Debug("getFileHFS", zap.String("path", path), zap.Bool("binary", binary))

	content, err := a.files.ReadFile(ctx, path, binary)
	if err != nil {
		return nil, connectionError("read", path, err)
	}
	return content, nil
}

func (a *USSAdapter) Write(ctx context.Context, path string, r io.Reader, binary bool) error {
	path = NormalizePath(path)
	a.log.Debug("saveFileHFS", zap.String("path", path), zap.Bool("binary", binary))

	content, err := io.ReadAll(r)
	if err != nil {
		return connectionError("write", path, fmt.Errorf("read content: %w", err))
	}
	if err := a.files.WriteFile(ctx, path, content, binary); err != nil {
		return connectionError("write", path, err)
	}
	return nil
}

// WriteCharset encodes UTF-8 text from r into charset (an IANA name such
// as "IBM1047" or "ISO-8859-1") and uploads the result unconverted.
func (a *USSAdapter) WriteCharset(ctx context.Context, path string, r io.Reader, charset string) error {
	const op = "write"
	path = NormalizePath(path)
	a.log.Debug("saveFileHFS", zap.String("path", path), zap.String("charset", charset))

	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return misuse(op, charset, ErrUnknownCharset)
	}

	text, err := io.ReadAll(r)
	if err != nil {
		return connectionError(op, path, fmt.Errorf("read content: %w", err))
	}
	content, err := enc.NewEncoder().Bytes(text)
	if err != nil {
		return misuse(op, path, fmt.Errorf("encode to %s: %w", charset, err))
	}
	if err := a.files.WriteFile(ctx, path, content, true); err != nil {
		return connectionError(op, path, err)
	}
	return nil
}

// ChangePermissions sets the mode of path from an octal string like "755".
func (a *USSAdapter) ChangePermissions(ctx context.Context, path, octal string) error {
	const op = "change permissions"
	path = NormalizePath(path)
	a.log.Debug("changePermissions", zap.String("path", path), zap.String("mode", octal))

	if !octalMode.MatchString(octal) {
		return misuse(op, octal, ErrInvalidMode)
	}
	if err := a.files.ChangeMode(ctx, path, octal); err != nil {
		return connectionError(op, path, err)
	}
	return nil
}
