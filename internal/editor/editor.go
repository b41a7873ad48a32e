// Package editor round-trips remote content through the user's editor.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func DetectEditor() string {
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	return "vi"
}

// Open opens the file in editor (DetectEditor when empty) and blocks until
// the editor exits. editor may carry arguments, e.g. "code --wait".
func Open(ctx context.Context, editor, path string) error {
	if editor == "" {
		editor = DetectEditor()
	}

	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("no editor configured")
	}
	args := append(parts[1:], path)

	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// Edit writes content to a temp file named after name, opens it and
// returns the edited bytes. changed is false when the file came back
// byte-identical.
func Edit(ctx context.Context, editor, name string, content []byte) (edited []byte, changed bool, err error) {
	tmpFile, err := writeTempFile(name, content)
	if err != nil {
		return nil, false, err
	}
	defer os.Remove(tmpFile)

	if err := Open(ctx, editor, tmpFile); err != nil {
		return nil, false, err
	}

	edited, err = os.ReadFile(tmpFile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read edited file: %w", err)
	}
	return edited, !bytes.Equal(content, edited), nil
}

func writeTempFile(name string, content []byte) (string, error) {
	name = filepath.Base(name)
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".txt"
	}
	prefix := strings.TrimSuffix(name, ext) + "-"

	f, err := os.CreateTemp("", prefix+"*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Name(), nil
}
