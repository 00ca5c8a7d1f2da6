package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultTreeDepth = 3
	maxTreeEntries   = 500
)

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".build":       true,
}

type treeArgs struct {
	Path  string `json:"path,omitempty" jsonschema_description:"Directory to list (default: working directory)"`
	Depth int    `json:"depth,omitempty" jsonschema_description:"Maximum depth to descend (default 3)"`
}

// TreeTool renders the folder structure below a directory.
type TreeTool struct {
	workDir string
}

func NewTreeTool(workDir string) *TreeTool {
	return &TreeTool{workDir: workDir}
}

func (t *TreeTool) Name() string {
	return "tree"
}

func (t *TreeTool) Description() string {
	return "Show the folder structure of a directory as a tree, skipping VCS and dependency folders."
}

func (t *TreeTool) Parameters() map[string]interface{} {
	return schemaOf(&treeArgs{})
}

func (t *TreeTool) Mutating() bool {
	return false
}

func (t *TreeTool) Execute(ctx context.Context, call Call) (string, error) {
	var args treeArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if args.Path == "" {
		args.Path = "."
	}
	if args.Depth <= 0 {
		args.Depth = defaultTreeDepth
	}

	root := resolvePath(t.workDir, args.Path)
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("no directory available: %s (%v)", args.Path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", args.Path)
	}

	return RenderTree(ctx, root, args.Depth)
}

// RenderTree draws the directory below root down to depth levels.
func RenderTree(ctx context.Context, root string, depth int) (string, error) {
	r := &treeRenderer{maxDepth: depth}
	r.b.WriteString(filepath.Base(root) + "/\n")
	if err := r.walk(ctx, root, "", 1); err != nil {
		return "", err
	}
	if r.truncated {
		r.b.WriteString("... (truncated)\n")
	}
	return r.b.String(), nil
}

type treeRenderer struct {
	b         strings.Builder
	maxDepth  int
	entries   int
	truncated bool
}

func (r *treeRenderer) walk(ctx context.Context, dir, prefix string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(&r.b, "%s└── [Error reading directory: %v]\n", prefix, err)
		return nil
	}

	visible := entries[:0]
	for _, e := range entries {
		if e.IsDir() && skippedDirs[e.Name()] {
			continue
		}
		visible = append(visible, e)
	}

	for i, e := range visible {
		if r.entries >= maxTreeEntries {
			r.truncated = true
			return nil
		}
		r.entries++

		branch, next := "├── ", "│   "
		if i == len(visible)-1 {
			branch, next = "└── ", "    "
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		r.b.WriteString(prefix + branch + name + "\n")

		if e.IsDir() && depth < r.maxDepth {
			if err := r.walk(ctx, filepath.Join(dir, e.Name()), prefix+next, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
