package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

type writeArgs struct {
	Path    string `json:"path" jsonschema_description:"Destination file path, absolute or relative to the working directory"`
	Content string `json:"content" jsonschema_description:"Full content to write; an existing file is overwritten"`
}

// WriteTool creates or overwrites a file after the human approves it.
type WriteTool struct {
	workDir     string
	confirmator Confirmator
}

func NewWriteTool(workDir string) *WriteTool {
	return &WriteTool{workDir: workDir}
}

func (w *WriteTool) Name() string {
	return "write"
}

func (w *WriteTool) Description() string {
	return "Write content to a file, creating parent directories as needed. Overwrites existing files. Requires user approval."
}

func (w *WriteTool) Parameters() map[string]interface{} {
	return schemaOf(&writeArgs{})
}

func (w *WriteTool) Mutating() bool {
	return true
}

func (w *WriteTool) SetConfirmator(confirmator Confirmator) {
	w.confirmator = confirmator
}

func (w *WriteTool) Execute(ctx context.Context, call Call) (string, error) {
	var args writeArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Path) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if args.Content == "" {
		return "", fmt.Errorf("content must not be empty")
	}

	fullPath := resolvePath(w.workDir, args.Path)
	if info, err := os.Stat(fullPath); err == nil && info.IsDir() {
		return "", fmt.Errorf("cannot write %s: target is a directory", fullPath)
	}

	if w.confirmator == nil {
		return "", fmt.Errorf("cannot write %s: no approval channel", fullPath)
	}
	if !w.confirmator.Confirm(ctx, fmt.Sprintf("Permission to write %s", fullPath), preview(args.Content)) {
		return "", fmt.Errorf("%w: %s was not written", ErrDenied, fullPath)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", describeWriteError(fullPath, err)
	}
	if err := os.WriteFile(fullPath, []byte(args.Content), 0o644); err != nil {
		return "", describeWriteError(fullPath, err)
	}
	return fmt.Sprintf("File written successfully → %s", fullPath), nil
}

// describeWriteError names the permission and directory cases explicitly.
func describeWriteError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied writing %s: %w", path, err)
	case errors.Is(err, syscall.EISDIR):
		return fmt.Errorf("cannot write %s: target is a directory", path)
	case errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("cannot write %s: a parent path is not a directory", path)
	default:
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
}
