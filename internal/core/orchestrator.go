package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vigneshmj1997/CodingAgent/internal/checkpoint"
	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
	"github.com/vigneshmj1997/CodingAgent/internal/tools"
)

const DefaultMaxInvocations = 50

// Options wires an Orchestrator. Invoker and Dispatcher are required.
type Options struct {
	Invoker        llm.Invoker
	Dispatcher     *tools.Dispatcher
	Tools          []models.ToolSpec
	Emitter        *stream.Emitter
	Store          checkpoint.Store
	Logger         *slog.Logger
	BasePrompt     string
	ThreadID       string
	MaxInvocations int
}

// Orchestrator drives one conversation thread through the turn state
// machine. Only one turn runs at a time.
type Orchestrator struct {
	invoker        llm.Invoker
	dispatcher     *tools.Dispatcher
	tools          []models.ToolSpec
	compressor     *Compressor
	emitter        *stream.Emitter
	store          checkpoint.Store
	logger         *slog.Logger
	basePrompt     string
	maxInvocations int

	busy atomic.Bool
	mu   sync.RWMutex
	conv models.Conversation
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Invoker == nil {
		return nil, errors.New("orchestrator needs a model invoker")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("orchestrator needs a tool dispatcher")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Store == nil {
		opts.Store = checkpoint.NewMemoryStore()
	}
	if opts.MaxInvocations <= 0 {
		opts.MaxInvocations = DefaultMaxInvocations
	}
	if opts.ThreadID == "" {
		opts.ThreadID = uuid.NewString()
	}

	return &Orchestrator{
		invoker:        opts.Invoker,
		dispatcher:     opts.Dispatcher,
		tools:          opts.Tools,
		compressor:     NewCompressor(opts.Invoker, opts.Logger),
		emitter:        opts.Emitter,
		store:          opts.Store,
		logger:         opts.Logger.With("thread", opts.ThreadID),
		basePrompt:     opts.BasePrompt,
		maxInvocations: opts.MaxInvocations,
		conv: models.Conversation{
			ThreadID: opts.ThreadID,
			Context:  opts.BasePrompt,
		},
	}, nil
}

// Restore loads the thread's last checkpoint, if there is one. It reports
// whether a conversation was found.
func (o *Orchestrator) Restore(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conv, err := o.store.Load(ctx, o.conv.ThreadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := models.ValidateHistory(conv.History); err != nil {
		return false, fmt.Errorf("checkpoint for %s is corrupt: %w", conv.ThreadID, err)
	}
	if conv.Context == "" {
		conv.Context = o.basePrompt
	}
	o.conv = conv
	return true, nil
}

// Conversation returns a copy of the committed conversation.
func (o *Orchestrator) Conversation() models.Conversation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.conv.Clone()
}

func (o *Orchestrator) ThreadID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.conv.ThreadID
}

// Busy reports whether a turn is running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// RunTurn appends the user input and runs the state machine until the model
// answers without tool calls. The conversation is committed and checkpointed
// when the turn ends, including when it ends with an error.
func (o *Orchestrator) RunTurn(ctx context.Context, input string) (answer string, err error) {
	if !o.busy.CompareAndSwap(false, true) {
		return "", ErrTurnInProgress
	}
	defer o.busy.Store(false)

	o.mu.RLock()
	conv := o.conv.Clone()
	o.mu.RUnlock()

	conv.History = append(conv.History, models.UserMessage(input))
	started := time.Now()
	o.logger.Info("turn started", "history", len(conv.History))

	defer func() {
		o.commit(conv)
		if err != nil {
			o.logger.Warn("turn failed", "error", err, "elapsed", time.Since(started))
			return
		}
		o.logger.Info("turn finished", "history", len(conv.History), "elapsed", time.Since(started))
	}()

	invocations := 0
	state := StateInvoking
	for {
		switch state {
		case StateInvoking:
			if invocations >= o.maxInvocations {
				return "", fmt.Errorf("%w (%d)", ErrInvocationLimit, o.maxInvocations)
			}
			invocations++
			msg, err := o.invoke(ctx, conv)
			if err != nil {
				return "", err
			}
			conv.History = append(conv.History, msg)

		case StateDispatching:
			conv.Context = o.basePrompt
			last := conv.History[len(conv.History)-1]
			for _, result := range o.dispatcher.DispatchAll(ctx, last.ToolCalls) {
				conv.History = append(conv.History, result.Message())
			}
			if err := ctx.Err(); err != nil {
				return "", err
			}

		case StateCompressing:
			before := len(conv.History)
			if err := o.compressor.Compress(ctx, &conv); err != nil {
				return "", err
			}
			o.emitter.Progress(stream.KindCompression, "Compressed conversation: %d messages -> %d", before, len(conv.History))

		case StateTerminated:
			last, _ := conv.LastAssistant()
			return last.Content, nil
		}

		state = Next(state, snapshot(conv))
		o.logger.Debug("transition", "state", state.String())
	}
}

func snapshot(conv models.Conversation) Snapshot {
	snap := Snapshot{HistoryLen: len(conv.History)}
	if n := len(conv.History); n > 0 && conv.History[n-1].HasToolCalls() {
		snap.PendingToolCalls = len(conv.History[n-1].ToolCalls)
	}
	return snap
}

func (o *Orchestrator) invoke(ctx context.Context, conv models.Conversation) (models.Message, error) {
	streamed := false
	msg, err := o.invoker.Invoke(ctx, llm.Request{
		System:  conv.Context,
		History: conv.History,
		Tools:   o.tools,
		OnDelta: func(text string) {
			streamed = true
			o.emitter.Token(text)
		},
	})
	if err != nil {
		o.emitter.TokenEnd()
		return models.Message{}, fmt.Errorf("model invocation failed: %w", err)
	}
	if !streamed {
		o.emitter.Token(msg.Content)
	}
	o.emitter.TokenEnd()

	if msg.Role == "" {
		msg.Role = models.RoleAssistant
	}
	return msg, nil
}

func (o *Orchestrator) commit(conv models.Conversation) {
	conv.UpdatedAt = time.Now()

	o.mu.Lock()
	o.conv = conv.Clone()
	o.mu.Unlock()

	// Cancellation of the turn must not lose the checkpoint.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.store.Save(ctx, conv); err != nil {
		o.logger.Error("failed to save checkpoint", "error", err)
	}
}
