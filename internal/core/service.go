package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/eventbus"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
)

// ChatService connects a UI to the orchestrator through the event bus. It
// runs each turn on its own goroutine so approval answers can reach the gate
// while the turn is suspended.
type ChatService struct {
	orch     *Orchestrator
	gate     *approval.Gate
	emitter  *stream.Emitter
	eventBus *eventbus.EventBus
	logger   *slog.Logger
	notices  []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	turnMu     sync.Mutex
	turnCancel context.CancelFunc
}

// NewChatService builds a service. The emitter must be the one the
// orchestrator and dispatcher write to. notices are shown to the UI on Start.
func NewChatService(orch *Orchestrator, gate *approval.Gate, emitter *stream.Emitter, eb *eventbus.EventBus, logger *slog.Logger, notices ...string) *ChatService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		orch:     orch,
		gate:     gate,
		emitter:  emitter,
		eventBus: eb,
		logger:   logger,
		notices:  notices,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start runs the event loop and the stream forwarder in the background.
func (cs *ChatService) Start() {
	for _, n := range cs.notices {
		cs.sendToUI(eventbus.NoticeEvent{Text: n})
	}
	cs.pushState(false, nil)

	cs.wg.Add(2)
	go func() {
		defer cs.wg.Done()
		cs.eventLoop()
	}()
	go func() {
		defer cs.wg.Done()
		cs.forwardStream()
	}()
}

// Stop cancels any running turn and waits for background work to end. The
// event bus can be closed afterwards.
func (cs *ChatService) Stop() {
	cs.cancelTurn()
	cs.cancel()
	cs.wg.Wait()
}

func (cs *ChatService) eventLoop() {
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SendMessageEvent:
		cs.startTurn(e.Message)
	case eventbus.ApprovalResponseEvent:
		if !cs.gate.Resolve(e.ID, e.Answer) {
			cs.logger.Warn("answer for unknown approval request", "id", e.ID)
		}
	case eventbus.CancelTurnEvent:
		cs.cancelTurn()
	}
}

func (cs *ChatService) startTurn(input string) {
	cs.turnMu.Lock()
	if cs.turnCancel != nil {
		cs.turnMu.Unlock()
		cs.pushState(true, ErrTurnInProgress)
		return
	}
	ctx, cancel := context.WithCancel(cs.ctx)
	cs.turnCancel = cancel
	cs.turnMu.Unlock()

	cs.pushState(true, nil)

	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		_, err := cs.orch.RunTurn(ctx, input)

		cs.turnMu.Lock()
		cs.turnCancel = nil
		cs.turnMu.Unlock()
		cancel()

		if errors.Is(err, context.Canceled) {
			err = errors.New("turn cancelled")
		}
		errText := ""
		if err != nil {
			errText = err.Error()
		}
		cs.emitter.TurnEnd(errText)
		cs.pushState(false, err)
	}()
}

func (cs *ChatService) cancelTurn() {
	cs.turnMu.Lock()
	defer cs.turnMu.Unlock()
	if cs.turnCancel != nil {
		cs.turnCancel()
	}
}

// forwardStream relays emitter events to the UI without dropping any.
func (cs *ChatService) forwardStream() {
	err := stream.Consume(cs.ctx, cs.emitter, func(evt stream.Event) {
		if err := cs.eventBus.PublishToUI(cs.ctx, eventbus.StreamEvent{Event: evt}); err != nil && cs.ctx.Err() == nil {
			cs.logger.Error("failed to forward stream event", "kind", evt.Kind, "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		cs.logger.Error("stream forwarding stopped", "error", err)
	}
}

func (cs *ChatService) pushState(processing bool, err error) {
	cs.sendToUI(eventbus.StateUpdateEvent{Processing: processing, Error: err})
}

func (cs *ChatService) sendToUI(event eventbus.CoreEvent) {
	if err := cs.eventBus.SendToUI(event); err != nil {
		cs.logger.Error("failed to send event to UI", "error", err)
	}
}
