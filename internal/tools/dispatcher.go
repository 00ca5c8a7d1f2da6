package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
)

// Dispatcher executes tool calls against the registry. It never returns an
// error: every failure becomes a ToolResult with Succeeded=false.
type Dispatcher struct {
	registry *Registry
	emitter  *stream.Emitter
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, emitter *stream.Emitter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{registry: registry, emitter: emitter, logger: logger}
}

// DispatchAll runs calls sequentially, in order, and returns exactly one
// result per call.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			results = append(results, models.ToolResult{
				ToolCallID: call.ID,
				Output:     fmt.Sprintf("tool %s was not run: %v", call.Name, err),
			})
			continue
		}
		results = append(results, d.Dispatch(ctx, call))
	}
	return results
}

// Dispatch runs a single tool call.
func (d *Dispatcher) Dispatch(ctx context.Context, call models.ToolCall) (result models.ToolResult) {
	result.ToolCallID = call.ID
	start := time.Now()
	d.progress(stream.KindToolStart, call, string(call.Arguments))

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", call.Name, "call_id", call.ID, "panic", r, "stack", string(debug.Stack()))
			result.Output = fmt.Sprintf("tool %s failed unexpectedly: %v", call.Name, r)
			result.Succeeded = false
		}
		if !result.Succeeded {
			d.progress(stream.KindDiagnostic, call, result.Output)
		}
		status := "ok"
		if !result.Succeeded {
			status = "failed"
		}
		d.progress(stream.KindToolEnd, call, status)
		d.logger.Info("tool finished", "tool", call.Name, "call_id", call.ID, "succeeded", result.Succeeded, "duration", time.Since(start))
	}()

	tool, ok := d.registry.GetTool(call.Name)
	if !ok {
		result.Output = fmt.Sprintf("unknown tool %q", call.Name)
		return result
	}
	if tool.Mutating() && !d.registry.HasConfirmator() {
		result.Output = fmt.Sprintf("tool %s modifies files and no approval channel is available; nothing was changed", call.Name)
		return result
	}
	if len(call.Arguments) > 0 && !json.Valid(call.Arguments) {
		result.Output = fmt.Sprintf("invalid arguments for %s: not a JSON object", call.Name)
		return result
	}

	output, err := tool.Execute(ctx, Call{
		ID:   call.ID,
		Args: call.Arguments,
		Progress: func(line string) {
			d.progress(stream.KindToolOutput, call, line)
		},
	})
	if err != nil {
		if errors.Is(err, ErrDenied) {
			d.logger.Info("tool denied by user", "tool", call.Name, "call_id", call.ID)
		}
		result.Output = err.Error()
		return result
	}
	result.Output = output
	result.Succeeded = true
	return result
}

func (d *Dispatcher) progress(kind stream.Kind, call models.ToolCall, text string) {
	if d.emitter == nil {
		return
	}
	d.emitter.ToolProgress(kind, call.Name, call.ID, text)
}
