package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type editArgs struct {
	Path        string `json:"path" jsonschema_description:"File to edit, absolute or relative to the working directory"`
	OldString   string `json:"old_string" jsonschema_description:"Exact text to replace; must occur in the file"`
	NewString   string `json:"new_string" jsonschema_description:"Replacement text"`
	Occurrences int    `json:"occurrences,omitempty" jsonschema_description:"Number of leading matches to replace (default 1)"`
}

// EditTool replaces text in an existing file and shows the human a unified
// diff before writing.
type EditTool struct {
	workDir     string
	confirmator Confirmator
}

func NewEditTool(workDir string) *EditTool {
	return &EditTool{workDir: workDir}
}

func (e *EditTool) Name() string {
	return "edit"
}

func (e *EditTool) Description() string {
	return "Replace the first N occurrences of old_string with new_string in a file. A diff preview is shown and the user must approve it."
}

func (e *EditTool) Parameters() map[string]interface{} {
	return schemaOf(&editArgs{})
}

func (e *EditTool) Mutating() bool {
	return true
}

func (e *EditTool) SetConfirmator(confirmator Confirmator) {
	e.confirmator = confirmator
}

func (e *EditTool) Execute(ctx context.Context, call Call) (string, error) {
	var args editArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Path) == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if strings.TrimSpace(args.OldString) == "" || strings.TrimSpace(args.NewString) == "" {
		return "", fmt.Errorf("old_string and new_string must not be blank")
	}
	if args.Occurrences <= 0 {
		args.Occurrences = 1
	}

	fullPath := resolvePath(e.workDir, args.Path)
	original, err := readTextFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("no file available: %s (%v)", args.Path, err)
	}
	if !strings.Contains(original, args.OldString) {
		return "", fmt.Errorf("string %q not found in %s", args.OldString, fullPath)
	}

	updated := strings.Replace(original, args.OldString, args.NewString, args.Occurrences)
	diff, err := unifiedDiff(displayPath(e.workDir, fullPath), original, updated)
	if err != nil {
		return "", fmt.Errorf("failed to build diff for %s: %w", fullPath, err)
	}

	if e.confirmator == nil {
		return "", fmt.Errorf("cannot edit %s: no approval channel", fullPath)
	}
	if !e.confirmator.Confirm(ctx, fmt.Sprintf("Permission to edit %s", fullPath), diff) {
		return "", fmt.Errorf("%w: %s was not modified", ErrDenied, fullPath)
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(fullPath); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(fullPath, []byte(updated), mode); err != nil {
		return "", describeWriteError(fullPath, err)
	}
	return diff, nil
}

func unifiedDiff(name, before, after string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
}
