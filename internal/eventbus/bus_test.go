package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
)

func TestSendToCoreDelivers(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	require.NoError(t, eb.SendToCore(SendMessageEvent{Message: "hi"}))
	evt := <-eb.UIToCore()
	assert.Equal(t, SendMessageEvent{Message: "hi"}, evt)
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	var reported []EventBusError
	eb.SetErrorCallback(func(e EventBusError) { reported = append(reported, e) })

	for i := 0; i < cap(eb.coreToUI); i++ {
		require.NoError(t, eb.SendToUI(NoticeEvent{Text: "fill"}))
	}
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, eb.SendToUI(NoticeEvent{}), ErrChannelFull)
	}
	assert.Equal(t, CircuitOpen, eb.GetCircuitBreakerState())
	assert.ErrorIs(t, eb.SendToUI(NoticeEvent{}), ErrCircuitOpen)
	assert.Len(t, reported, 6)
	assert.Equal(t, "SendToUI", reported[0].Operation)

	assert.Equal(t, CircuitClosed, eb.CoreCircuitBreakerState())
	assert.NoError(t, eb.SendToCore(SendMessageEvent{Message: "still accepted"}))
}

func TestCircuitBreakerHalfOpens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestPublishToUIWaitsForRoom(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()
	for i := 0; i < cap(eb.coreToUI); i++ {
		require.NoError(t, eb.SendToUI(NoticeEvent{}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, eb.PublishToUI(ctx, NoticeEvent{}), context.DeadlineExceeded)

	<-eb.CoreToUI()
	assert.NoError(t, eb.PublishToUI(context.Background(), NoticeEvent{Text: "late"}))
}

func TestApprovalNotifier(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()

	notify := eb.ApprovalNotifier()
	require.NoError(t, notify(context.Background(), approval.Request{ID: "a1", Description: "Permission to write x"}))

	evt := <-eb.CoreToUI()
	req, ok := evt.(ApprovalRequestEvent)
	require.True(t, ok)
	assert.Equal(t, "a1", req.Request.ID)
}

func TestSendAfterClose(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close()
	assert.ErrorIs(t, eb.SendToCore(CancelTurnEvent{}), ErrClosed)
	assert.ErrorIs(t, eb.SendToUI(NoticeEvent{}), ErrClosed)
}

func TestApprovalWaitsForHumanWhenUIIsBacklogged(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()
	for i := 0; i < cap(eb.coreToUI); i++ {
		require.NoError(t, eb.PublishToUI(context.Background(), StreamEvent{}))
	}

	gate := approval.NewGate(eb.ApprovalNotifier())
	done := make(chan approval.Decision, 1)
	go func() { done <- gate.Request(context.Background(), "Permission to write a.txt", "") }()

	select {
	case d := <-done:
		t.Fatalf("request resolved %s before the human saw it", d)
	case <-time.After(50 * time.Millisecond):
	}

	var req approval.Request
	for req.ID == "" {
		if evt, ok := (<-eb.CoreToUI()).(ApprovalRequestEvent); ok {
			req = evt.Request
		}
	}
	require.True(t, gate.Resolve(req.ID, "yes"))
	assert.Equal(t, approval.Approved, <-done)
	assert.Equal(t, CircuitClosed, eb.GetCircuitBreakerState())
	assert.NoError(t, eb.SendToCore(SendMessageEvent{Message: "next"}))
}

func TestApprovalNotifierGivesUpWithContext(t *testing.T) {
	eb := NewEventBus()
	defer eb.Close()
	for i := 0; i < cap(eb.coreToUI); i++ {
		require.NoError(t, eb.SendToUI(NoticeEvent{}))
	}

	gate := approval.NewGate(eb.ApprovalNotifier(), approval.WithTimeout(20*time.Millisecond))
	assert.Equal(t, approval.Denied, gate.Request(context.Background(), "Permission to write a.txt", ""))
	assert.Equal(t, CircuitClosed, eb.GetCircuitBreakerState())
}
