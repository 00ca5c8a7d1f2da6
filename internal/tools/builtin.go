package tools

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultShellTimeout = 120 * time.Second
	DefaultFetchTimeout = 10 * time.Second
	previewLimit        = 4000
)

// Deps configures the built-in tool set.
type Deps struct {
	WorkDir      string        // base for relative paths, defaults to the process cwd
	NotepadPath  string        // scratch file appended to by the notepad tool
	ShellTimeout time.Duration // zero means DefaultShellTimeout
	FetchTimeout time.Duration // zero means DefaultFetchTimeout
	HTTPClient   *http.Client
	Confirmator  Confirmator
	Asker        Asker
}

// NewDefaultRegistry registers the built-in tools in the order they are
// advertised to the model.
func NewDefaultRegistry(deps Deps) (*Registry, error) {
	if deps.WorkDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		deps.WorkDir = cwd
	}
	if deps.NotepadPath == "" {
		deps.NotepadPath = filepath.Join(deps.WorkDir, "notepad.md")
	}

	registry := NewRegistry()
	builtin := []Tool{
		NewReadTool(deps.WorkDir),
		NewWriteTool(deps.WorkDir),
		NewEditTool(deps.WorkDir),
		NewShellTool(deps.WorkDir, deps.ShellTimeout),
		NewFetchTool(deps.HTTPClient, deps.FetchTimeout),
		NewNotepadTool(deps.NotepadPath),
		NewTreeTool(deps.WorkDir),
		NewAskUserTool(deps.Asker),
	}
	for _, tool := range builtin {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	if deps.Confirmator != nil {
		registry.SetConfirmator(deps.Confirmator)
	}
	return registry, nil
}

// resolvePath makes p absolute against workDir.
func resolvePath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(workDir, p)
}

// displayPath prefers a path relative to workDir when p lives below it.
func displayPath(workDir, p string) string {
	rel, err := filepath.Rel(workDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

// truncateRunes keeps the first n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	return truncateRunes(s, previewLimit) + "\n... (preview truncated)"
}
