//go:build !windows

package tools

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellStreamsStdoutAndAppendsStderr(t *testing.T) {
	shell := NewShellTool(t.TempDir(), 10*time.Second)
	call, progress := newCall(t, shellArgs{Command: "echo one; echo two; echo oops 1>&2; exit 3"})

	out, err := shell.Execute(context.Background(), call)
	require.NoError(t, err, "a non-zero exit is reported in the output, not raised")
	assert.Equal(t, "one\ntwo\noops\n[exit status 3]", out)
	assert.Equal(t, []string{"Executing command: echo one; echo two; echo oops 1>&2; exit 3", "one", "two"}, progress.all())
}

func TestShellSuccessHasNoStatusMarker(t *testing.T) {
	shell := NewShellTool(t.TempDir(), 10*time.Second)
	call, _ := newCall(t, shellArgs{Command: "printf 'no newline'"})

	out, err := shell.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "no newline", out)
}

func TestShellRunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	call, _ := newCall(t, shellArgs{Command: "pwd"})
	out, err := NewShellTool(dir, 10*time.Second).Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Base(dir))
}

func TestShellTimeoutKillsProcess(t *testing.T) {
	shell := NewShellTool(t.TempDir(), 200*time.Millisecond)
	call, _ := newCall(t, shellArgs{Command: "sleep 30 & sleep 30"})

	start := time.Now()
	out, err := shell.Execute(context.Background(), call)
	require.NoError(t, err)
	assert.Contains(t, out, "[timed out after")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestShellCancelledTurn(t *testing.T) {
	shell := NewShellTool(t.TempDir(), time.Minute)
	call, _ := newCall(t, shellArgs{Command: "sleep 30"})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	out, err := shell.Execute(ctx, call)
	require.NoError(t, err)
	assert.Contains(t, out, "[cancelled]")
}

func TestShellRejectsEmptyCommand(t *testing.T) {
	call, _ := newCall(t, shellArgs{Command: "  "})
	_, err := NewShellTool(t.TempDir(), time.Second).Execute(context.Background(), call)
	assert.Error(t, err)
}
