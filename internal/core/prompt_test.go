package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("Run make test before committing."), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))

	prompt := BuildSystemPrompt(context.Background(), PromptOptions{WorkDir: dir, Model: "gpt-test"})

	assert.True(t, strings.HasPrefix(prompt, baseInstructions))
	assert.Contains(t, prompt, "Working directory: "+dir)
	assert.Contains(t, prompt, "Model: gpt-test")
	assert.Contains(t, prompt, "└── pkg/")
	assert.Contains(t, prompt, "# AGENTS.md (from "+dir+")")
	assert.Contains(t, prompt, "Run make test before committing.")
}

func TestProjectDocsAreCapped(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("x", maxProjectDocBytes+100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte(big), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CLAUDE.md"), []byte("second"), 0o644))

	docs := discoverProjectDocs(dir)
	assert.Contains(t, docs, "[Project instructions truncated at 32KB]")
	assert.NotContains(t, docs, "second")
}

func TestPathHierarchy(t *testing.T) {
	root := filepath.Join("/", "repo")
	assert.Equal(t, []string{root}, pathHierarchy(root, root))
	assert.Equal(t,
		[]string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")},
		pathHierarchy(root, filepath.Join(root, "a", "b")))
	assert.Equal(t, []string{"/elsewhere"}, pathHierarchy(root, "/elsewhere"))
}
