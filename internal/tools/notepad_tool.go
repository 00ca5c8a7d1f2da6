package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const notepadSeparator = "\n---\n"

type notepadArgs struct {
	Text string `json:"text" jsonschema_description:"Note to append to the scratch file"`
}

// NotepadTool appends notes to a durable scratch file.
type NotepadTool struct {
	path string
	mu   sync.Mutex
}

func NewNotepadTool(path string) *NotepadTool {
	return &NotepadTool{path: path}
}

func (n *NotepadTool) Name() string {
	return "notepad"
}

func (n *NotepadTool) Description() string {
	return "Append a note to the scratch notepad, e.g. a plan or intermediate findings to keep across compression."
}

func (n *NotepadTool) Parameters() map[string]interface{} {
	return schemaOf(&notepadArgs{})
}

func (n *NotepadTool) Mutating() bool {
	return false
}

func (n *NotepadTool) Execute(ctx context.Context, call Call) (string, error) {
	var args notepadArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return "", fmt.Errorf("notepad unavailable: %w", err)
	}
	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("notepad unavailable: %w", err)
	}
	if _, err := f.WriteString(args.Text + notepadSeparator); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to append to notepad: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to append to notepad: %w", err)
	}
	return "Task completed", nil
}
