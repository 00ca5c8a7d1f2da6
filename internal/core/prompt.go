package core

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/vigneshmj1997/CodingAgent/internal/tools"
)

const (
	maxProjectDocBytes = 32 * 1024
	promptTreeDepth    = 2
)

var projectDocFiles = []string{"AGENTS.md", "CLAUDE.md", ".swi/instructions.md"}

const baseInstructions = `You are swi, a software engineering assistant working in the user's terminal.
You help with coding tasks by reading code, running commands and changing files through the tools you are given.

Tools:
- read: read a file, or every file matching a glob pattern.
- write: create or overwrite a file. The user must approve every write.
- edit: replace a string inside a file. The user must approve every edit and sees the diff first.
- shell: run a shell command in the working directory.
- fetch: download web pages, at most the first 1000 characters of each.
- notepad: append notes to your scratch file to keep track of long tasks.
- tree: show the folder structure.
- ask_user: ask the user a question when the request is ambiguous.

Guidelines:
- Read a file before you edit it, and prefer edit over rewriting whole files.
- If the user declines a change, do not retry it unchanged; ask what they want instead.
- Keep answers short. Show code only when it helps.
- When the task is done, reply with a plain answer and no tool calls.`

// PromptOptions describe the session the system prompt is built for.
type PromptOptions struct {
	WorkDir  string
	Model    string
	Provider string
}

// BuildSystemPrompt assembles the base context block: instructions, an
// environment summary, the project layout and any project instruction files.
func BuildSystemPrompt(ctx context.Context, opts PromptOptions) string {
	if opts.WorkDir == "" {
		opts.WorkDir, _ = os.Getwd()
	}

	sections := []string{baseInstructions, environmentBlock(opts)}
	if tree, err := tools.RenderTree(ctx, opts.WorkDir, promptTreeDepth); err == nil {
		sections = append(sections, "<project_structure>\n"+strings.TrimRight(tree, "\n")+"\n</project_structure>")
	}
	if docs := discoverProjectDocs(opts.WorkDir); docs != "" {
		sections = append(sections, docs)
	}
	return strings.Join(sections, "\n\n")
}

func environmentBlock(opts PromptOptions) string {
	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", opts.WorkDir)
	if branch := gitOutput(opts.WorkDir, "rev-parse", "--abbrev-ref", "HEAD"); branch != "" {
		fmt.Fprintf(&sb, "Git branch: %s\n", branch)
	}
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	if opts.Model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", opts.Model)
	}
	sb.WriteString("</environment>")
	return sb.String()
}

// discoverProjectDocs loads instruction files from the repository root down
// to the working directory.
func discoverProjectDocs(workDir string) string {
	root := gitOutput(workDir, "rev-parse", "--show-toplevel")
	if root == "" {
		root = workDir
	}

	var docs []string
	total := 0
	for _, dir := range pathHierarchy(root, workDir) {
		for _, name := range projectDocFiles {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			remaining := maxProjectDocBytes - total
			if remaining <= 0 {
				docs = append(docs, "[Project instructions truncated at 32KB]")
				return strings.Join(docs, "\n\n---\n\n")
			}
			text := string(content)
			if len(text) > remaining {
				text = text[:remaining] + "\n[Project instructions truncated at 32KB]"
			}
			docs = append(docs, fmt.Sprintf("# %s (from %s)\n\n%s", name, dir, text))
			total += len(text)
		}
	}
	return strings.Join(docs, "\n\n---\n\n")
}

// pathHierarchy returns the directories from root to target, inclusive.
// A target outside root yields just target.
func pathHierarchy(root, target string) []string {
	root, target = filepath.Clean(root), filepath.Clean(target)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return []string{target}
	}

	dirs := []string{root}
	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." {
			continue
		}
		current = filepath.Join(current, part)
		dirs = append(dirs, current)
	}
	return dirs
}

func gitOutput(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
