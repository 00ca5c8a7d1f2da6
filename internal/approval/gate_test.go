package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		answer string
		want   Decision
	}{
		{"y", Approved},
		{"Y", Approved},
		{"yes", Approved},
		{"  YES \n", Approved},
		{"no", Denied},
		{"n", Denied},
		{"", Denied},
		{"nope", Denied},
		{"yes please", Denied},
		{"maybe yes", Denied},
		{"yeah", Denied},
		{"okay", Denied},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDecision(tt.answer), "answer %q", tt.answer)
	}
}

// answering returns a notifier that resolves every request with answer.
func answering(g **Gate, answer string) Notifier {
	return func(ctx context.Context, req Request) error {
		go (*g).Resolve(req.ID, answer)
		return nil
	}
}

func TestGateDenialTextIsNotApproval(t *testing.T) {
	var g *Gate
	g = NewGate(answering(&g, "no"))
	assert.Equal(t, Denied, g.Request(context.Background(), "Permission to write a.txt", ""))
	assert.Empty(t, g.Pending())
}

func TestGateApprove(t *testing.T) {
	var g *Gate
	g = NewGate(answering(&g, "yes"))
	assert.True(t, g.Confirm(context.Background(), "Permission to write a.txt", "hello"))
}

func TestGateSurfacesRequest(t *testing.T) {
	got := make(chan Request, 1)
	g := NewGate(func(ctx context.Context, req Request) error {
		got <- req
		return nil
	})

	done := make(chan Decision, 1)
	go func() { done <- g.Request(context.Background(), "edit main.go", "--- diff") }()

	req := <-got
	assert.Equal(t, KindConfirm, req.Kind)
	assert.Equal(t, "edit main.go", req.Description)
	assert.Equal(t, "--- diff", req.Preview)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, []string{req.ID}, g.Pending())

	require.True(t, g.Resolve(req.ID, "y"))
	assert.Equal(t, Approved, <-done)
	assert.False(t, g.Resolve(req.ID, "y"), "resolving twice must fail")
}

func TestGateCancelResolvesDenied(t *testing.T) {
	g := NewGate(func(context.Context, Request) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Decision, 1)
	go func() { done <- g.Request(ctx, "write", "") }()

	require.Eventually(t, func() bool { return len(g.Pending()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case d := <-done:
		assert.Equal(t, Denied, d)
	case <-time.After(time.Second):
		t.Fatal("cancelled request did not resolve")
	}
	assert.Empty(t, g.Pending())
}

func TestGateTimeoutResolvesDenied(t *testing.T) {
	g := NewGate(func(context.Context, Request) error { return nil }, WithTimeout(20*time.Millisecond))
	assert.Equal(t, Denied, g.Request(context.Background(), "write", ""))
}

func TestGateNotifyFailureDenies(t *testing.T) {
	g := NewGate(func(context.Context, Request) error { return errors.New("ui channel full") })
	assert.Equal(t, Denied, g.Request(context.Background(), "write", ""))

	_, err := g.Ask(context.Background(), "which file?")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGateTimeoutCoversBlockedNotifier(t *testing.T) {
	g := NewGate(func(ctx context.Context, req Request) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(20*time.Millisecond))

	_, err := g.Ask(context.Background(), "which file?")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Empty(t, g.Pending())
}

func TestGateWithoutNotifierDenies(t *testing.T) {
	g := NewGate(nil)
	assert.Equal(t, Denied, g.Request(context.Background(), "write", ""))
}

func TestGateAsk(t *testing.T) {
	var g *Gate
	g = NewGate(func(ctx context.Context, req Request) error {
		assert.Equal(t, KindQuestion, req.Kind)
		go g.Resolve(req.ID, "use port 8080")
		return nil
	})
	answer, err := g.Ask(context.Background(), "which port?")
	require.NoError(t, err)
	assert.Equal(t, "use port 8080", answer)
}
