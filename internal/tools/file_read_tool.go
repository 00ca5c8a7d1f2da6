package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

type readArgs struct {
	Path string `json:"path" jsonschema_description:"File path or glob pattern (*, ?, [..], ** for recursive), absolute or relative to the working directory"`
}

// ReadTool reads a single file or every file matched by a glob pattern.
type ReadTool struct {
	workDir string
}

func NewReadTool(workDir string) *ReadTool {
	return &ReadTool{workDir: workDir}
}

func (r *ReadTool) Name() string {
	return "read"
}

func (r *ReadTool) Description() string {
	return "Read the full content of a file. When path is a glob pattern every matched file is returned under a '--- path ---' header."
}

func (r *ReadTool) Parameters() map[string]interface{} {
	return schemaOf(&readArgs{})
}

func (r *ReadTool) Mutating() bool {
	return false
}

func (r *ReadTool) Execute(ctx context.Context, call Call) (string, error) {
	var args readArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Path) == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	call.Progress(fmt.Sprintf("Reading file(s) from: %s", args.Path))
	if isGlob(args.Path) {
		return r.readGlob(ctx, call, args.Path)
	}

	content, err := readTextFile(resolvePath(r.workDir, args.Path))
	if err != nil {
		return "", fmt.Errorf("no file available: %s (%v)", args.Path, err)
	}
	return content, nil
}

func (r *ReadTool) readGlob(ctx context.Context, call Call, pattern string) (string, error) {
	matches, err := doublestar.FilepathGlob(resolvePath(r.workDir, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return fmt.Sprintf("No file for %s pattern", pattern), nil
	}

	shown := make([]string, len(files))
	for i, f := range files {
		shown[i] = displayPath(r.workDir, f)
	}
	call.Progress(fmt.Sprintf("Matched files: %s", strings.Join(shown, ", ")))

	var b strings.Builder
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "--- %s ---\n", shown[i])
		content, err := readTextFile(f)
		if err != nil {
			fmt.Fprintf(&b, "[Error reading file: %v]\n", err)
			continue
		}
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// readTextFile returns the content of path, refusing directories and binary
// files. Content decides: valid UTF-8 without NUL bytes is text whatever its
// leading bytes look like.
func readTextFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !isText(data) {
		return "", fmt.Errorf("%s is a binary file (%s)", path, mimetype.Detect(data).String())
	}
	return string(data), nil
}

func isText(data []byte) bool {
	return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[")
}
