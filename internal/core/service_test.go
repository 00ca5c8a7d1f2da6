package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
	"github.com/vigneshmj1997/CodingAgent/internal/tools"
)

// guardedTool asks the gate before doing anything.
type guardedTool struct {
	gate     *approval.Gate
	approved chan bool
}

func (g *guardedTool) Name() string        { return "guarded" }
func (g *guardedTool) Description() string { return "asks first" }
func (g *guardedTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (g *guardedTool) Mutating() bool { return false }
func (g *guardedTool) Execute(ctx context.Context, call tools.Call) (string, error) {
	ok := g.gate.Confirm(ctx, "Permission to touch file", "")
	g.approved <- ok
	return "touched", nil
}

type serviceHarness struct {
	bus     *eventbus.EventBus
	service *ChatService
}

func startService(t *testing.T, inv llm.Invoker, tool func(*approval.Gate) tools.Tool) *serviceHarness {
	t.Helper()
	bus := eventbus.NewEventBus()
	gate := approval.NewGate(bus.ApprovalNotifier())
	emitter := stream.NewEmitter()

	registry := tools.NewRegistry()
	if tool != nil {
		require.NoError(t, registry.Register(tool(gate)))
	}
	orch, err := NewOrchestrator(Options{
		Invoker:    inv,
		Dispatcher: tools.NewDispatcher(registry, emitter, nil),
		Tools:      registry.Specs(),
		Emitter:    emitter,
		BasePrompt: testPrompt,
	})
	require.NoError(t, err)

	svc := NewChatService(orch, gate, emitter, bus, nil, "welcome")
	svc.Start()
	t.Cleanup(func() {
		svc.Stop()
		emitter.Close()
		bus.Close()
	})
	return &serviceHarness{bus: bus, service: svc}
}

// waitFor returns the first core event accepted by match.
func (h *serviceHarness) waitFor(t *testing.T, match func(eventbus.CoreEvent) bool) eventbus.CoreEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-h.bus.CoreToUI():
			if match(evt) {
				return evt
			}
		case <-timeout:
			t.Fatal("timed out waiting for core event")
			return nil
		}
	}
}

func isTurnEnd(evt eventbus.CoreEvent) bool {
	s, ok := evt.(eventbus.StreamEvent)
	return ok && s.Event.Kind == stream.KindTurnEnd
}

func TestChatServiceRoutesApprovals(t *testing.T) {
	var guarded *guardedTool
	inv := &scriptedInvoker{replies: []models.Message{
		models.AssistantMessage("", models.ToolCall{ID: "c1", Name: "guarded", Arguments: []byte(`{}`)}),
		models.AssistantMessage("all done"),
	}}
	h := startService(t, inv, func(g *approval.Gate) tools.Tool {
		guarded = &guardedTool{gate: g, approved: make(chan bool, 1)}
		return guarded
	})

	notice := h.waitFor(t, func(evt eventbus.CoreEvent) bool {
		_, ok := evt.(eventbus.NoticeEvent)
		return ok
	})
	assert.Equal(t, "welcome", notice.(eventbus.NoticeEvent).Text)

	require.NoError(t, h.bus.SendToCore(eventbus.SendMessageEvent{Message: "touch it"}))

	evt := h.waitFor(t, func(evt eventbus.CoreEvent) bool {
		_, ok := evt.(eventbus.ApprovalRequestEvent)
		return ok
	})
	req := evt.(eventbus.ApprovalRequestEvent).Request
	assert.Equal(t, "Permission to touch file", req.Description)
	require.NoError(t, h.bus.SendToCore(eventbus.ApprovalResponseEvent{ID: req.ID, Answer: " YES "}))

	assert.True(t, <-guarded.approved)
	end := h.waitFor(t, isTurnEnd).(eventbus.StreamEvent)
	assert.Empty(t, end.Event.Text)
}

func TestChatServiceCancelsTurn(t *testing.T) {
	inv := llm.InvokerFunc(func(ctx context.Context, req llm.Request) (models.Message, error) {
		<-ctx.Done()
		return models.Message{}, ctx.Err()
	})
	h := startService(t, inv, nil)

	require.NoError(t, h.bus.SendToCore(eventbus.SendMessageEvent{Message: "slow"}))
	h.waitFor(t, func(evt eventbus.CoreEvent) bool {
		s, ok := evt.(eventbus.StateUpdateEvent)
		return ok && s.Processing
	})

	require.NoError(t, h.bus.SendToCore(eventbus.SendMessageEvent{Message: "again"}))
	busy := h.waitFor(t, func(evt eventbus.CoreEvent) bool {
		s, ok := evt.(eventbus.StateUpdateEvent)
		return ok && s.Error != nil
	}).(eventbus.StateUpdateEvent)
	assert.ErrorIs(t, busy.Error, ErrTurnInProgress)

	require.NoError(t, h.bus.SendToCore(eventbus.CancelTurnEvent{}))
	end := h.waitFor(t, isTurnEnd).(eventbus.StreamEvent)
	assert.Equal(t, "turn cancelled", end.Event.Text)
}
