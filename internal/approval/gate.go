// Package approval implements the human-in-the-loop channel used before any
// filesystem mutation. A request is enqueued under a unique id, surfaced to
// the human through a Notifier, and the blocked caller is resumed when an
// answer for that id arrives.
package approval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Decision is the resolution of an approval request.
type Decision int

const (
	Pending Decision = iota
	Approved
	Denied
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Kind distinguishes yes/no confirmations from free-form questions.
type Kind string

const (
	KindConfirm  Kind = "confirm"
	KindQuestion Kind = "question"
)

// Request is surfaced to the human while the caller is suspended.
type Request struct {
	ID          string
	Kind        Kind
	Description string
	Preview     string // diff or content preview, may be empty
	CreatedAt   time.Time
}

// Notifier surfaces a request to the human. It may block until the request
// is shown, but must give up when ctx is done. A non-nil error means the
// request could not be shown and it resolves as denied.
type Notifier func(ctx context.Context, req Request) error

var (
	ErrCancelled   = errors.New("approval: request cancelled")
	ErrTimeout     = errors.New("approval: request timed out")
	ErrUnavailable = errors.New("approval: no human channel available")
)

// ParseDecision maps a human answer to a decision. Only an explicit
// affirmative ("y" or "yes", any case, surrounding space ignored) approves.
func ParseDecision(answer string) Decision {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return Approved
	default:
		return Denied
	}
}

// Gate blocks callers until the human resolves their request.
type Gate struct {
	notify  Notifier
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]chan string
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout bounds how long a request may stay pending. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithLogger sets the logger used for audit lines.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGate creates a Gate that surfaces requests through notify.
func NewGate(notify Notifier, opts ...Option) *Gate {
	g := &Gate{
		notify:  notify,
		logger:  slog.New(slog.DiscardHandler),
		pending: make(map[string]chan string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Request suspends the caller until the human answers. Cancellation, timeout
// or a failure to surface the request all resolve to Denied.
func (g *Gate) Request(ctx context.Context, description, preview string) Decision {
	answer, err := g.await(ctx, KindConfirm, description, preview)
	if err != nil {
		g.logger.Info("approval denied", "description", description, "reason", err)
		return Denied
	}
	decision := ParseDecision(answer)
	g.logger.Info("approval resolved", "description", description, "decision", decision.String())
	return decision
}

// Confirm implements tools.Confirmator.
func (g *Gate) Confirm(ctx context.Context, description, preview string) bool {
	return g.Request(ctx, description, preview) == Approved
}

// Ask suspends the caller until the human answers a free-form question.
func (g *Gate) Ask(ctx context.Context, question string) (string, error) {
	return g.await(ctx, KindQuestion, question, "")
}

// Resolve delivers the human answer for the request with the given id. It
// reports false when no such request is pending.
func (g *Gate) Resolve(id, answer string) bool {
	g.mu.Lock()
	ch, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	g.mu.Unlock()
	if !ok {
		return false
	}
	ch <- answer // buffered, never blocks
	return true
}

// Pending returns the ids of unresolved requests.
func (g *Gate) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	return ids
}

func (g *Gate) await(ctx context.Context, kind Kind, description, preview string) (string, error) {
	if g.notify == nil {
		return "", ErrUnavailable
	}

	req := Request{
		ID:          uuid.New().String(),
		Kind:        kind,
		Description: description,
		Preview:     preview,
		CreatedAt:   time.Now(),
	}
	ch := make(chan string, 1)

	g.mu.Lock()
	g.pending[req.ID] = ch
	g.mu.Unlock()
	defer g.forget(req.ID)

	// The timeout covers surfacing the request as well as waiting for the answer.
	waitCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}
	defer cancel()

	if err := g.notify(waitCtx, req); err != nil {
		if waitCtx.Err() != nil {
			return "", g.waitError(ctx)
		}
		return "", errors.Join(ErrUnavailable, err)
	}

	select {
	case answer := <-ch:
		return answer, nil
	case <-waitCtx.Done():
		return "", g.waitError(ctx)
	}
}

// waitError tells a cancelled caller apart from an expired request.
func (g *Gate) waitError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(ErrCancelled, err)
	}
	return ErrTimeout
}

func (g *Gate) forget(id string) {
	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()
}
