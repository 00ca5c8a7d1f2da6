package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

type shellArgs struct {
	Command string `json:"command" jsonschema_description:"Shell command line to execute in the working directory"`
}

// ShellTool executes shell commands. Stdout is streamed line by line while
// the command runs; stderr is appended once it exits.
type ShellTool struct {
	workDir string
	timeout time.Duration
}

func NewShellTool(workDir string, timeout time.Duration) *ShellTool {
	if timeout <= 0 {
		timeout = DefaultShellTimeout
	}
	return &ShellTool{workDir: workDir, timeout: timeout}
}

func (s *ShellTool) Name() string {
	return "shell"
}

func (s *ShellTool) Description() string {
	return "Execute a shell command and return its combined output. A non-zero exit status is reported in the output."
}

func (s *ShellTool) Parameters() map[string]interface{} {
	return schemaOf(&shellArgs{})
}

func (s *ShellTool) Mutating() bool {
	return false
}

func (s *ShellTool) Execute(ctx context.Context, call Call) (string, error) {
	var args shellArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Command) == "" {
		return "", fmt.Errorf("command must not be empty")
	}
	call.Progress(fmt.Sprintf("Executing command: %s", args.Command))

	cmdCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, shellPath, shellFlag, args.Command)
	cmd.Dir = s.workDir
	configureProcessGroup(cmd)
	cmd.WaitDelay = 2 * time.Second

	stdout := &lineWriter{emit: call.Progress}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	stdout.flush()

	var out strings.Builder
	out.WriteString(stdout.String())
	if stderr.Len() > 0 {
		out.Write(stderr.Bytes())
		if !bytes.HasSuffix(stderr.Bytes(), []byte("\n")) {
			out.WriteByte('\n')
		}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			fmt.Fprintf(&out, "[timed out after %s]", s.timeout)
		case ctx.Err() != nil:
			out.WriteString("[cancelled]")
		case errors.As(runErr, &exitErr):
			fmt.Fprintf(&out, "[exit status %d]", exitErr.ExitCode())
		default:
			return "", fmt.Errorf("failed to run command: %w", runErr)
		}
	}
	return out.String(), nil
}

// lineWriter records everything written to it and reports each complete
// line to emit as soon as it arrives.
type lineWriter struct {
	mu      sync.Mutex
	emit    func(string)
	all     bytes.Buffer
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.all.Write(p)
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.emit(strings.TrimRight(string(w.partial[:i]), "\r"))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = nil
	}
}

func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.all.String()
}
