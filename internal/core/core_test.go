package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
	"github.com/vigneshmj1997/CodingAgent/internal/tools"
)

const testPrompt = "base prompt"

// scriptedInvoker answers main-loop requests from replies in order and
// summary requests with summary.
type scriptedInvoker struct {
	mu      sync.Mutex
	replies []models.Message
	summary string
	failSum error
	calls   []llm.Request
}

func (s *scriptedInvoker) Invoke(ctx context.Context, req llm.Request) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.History = models.CloneMessages(req.History)
	s.calls = append(s.calls, req)

	if req.System == summaryInstruction {
		if s.failSum != nil {
			return models.Message{}, s.failSum
		}
		return models.AssistantMessage(s.summary), nil
	}
	if len(s.replies) == 0 {
		return models.Message{}, fmt.Errorf("no scripted reply left")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedInvoker) requests() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls...)
}

func isSummaryRequest(req llm.Request) bool {
	return req.System == summaryInstruction
}

// echoTool returns its "text" argument and records the order of calls.
type echoTool struct {
	mu   sync.Mutex
	seen []string
	hook func(ctx context.Context)
}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "echo text" }
func (e *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (e *echoTool) Mutating() bool { return false }
func (e *echoTool) Execute(ctx context.Context, call tools.Call) (string, error) {
	var args struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return "", err
	}
	e.mu.Lock()
	e.seen = append(e.seen, args.Text)
	e.mu.Unlock()
	if e.hook != nil {
		e.hook(ctx)
	}
	return "echo: " + args.Text, nil
}

func echoCall(id, text string) models.ToolCall {
	return models.ToolCall{ID: id, Name: "echo", Arguments: json.RawMessage(fmt.Sprintf(`{"text":%q}`, text))}
}

func newTestOrchestrator(t *testing.T, inv llm.Invoker, emitter *stream.Emitter, tool tools.Tool) *Orchestrator {
	t.Helper()
	registry := tools.NewRegistry()
	if tool != nil {
		require.NoError(t, registry.Register(tool))
	}
	o, err := NewOrchestrator(Options{
		Invoker:    inv,
		Dispatcher: tools.NewDispatcher(registry, emitter, nil),
		Tools:      registry.Specs(),
		Emitter:    emitter,
		BasePrompt: testPrompt,
		ThreadID:   "test-thread",
	})
	require.NoError(t, err)
	return o
}

func pairs(n int) []models.Message {
	var history []models.Message
	for i := 0; i < n; i++ {
		history = append(history,
			models.UserMessage(fmt.Sprintf("question %d", i)),
			models.AssistantMessage(fmt.Sprintf("answer %d", i)),
		)
	}
	return history
}
