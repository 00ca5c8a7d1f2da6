package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/stream"
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrChannelFull = errors.New("channel is full")
	ErrClosed      = errors.New("event bus is closed")
)

// UIEvent represents events sent from UI to Core
type UIEvent interface {
	UIEvent()
}

// CoreEvent represents events sent from Core to UI
type CoreEvent interface {
	CoreEvent()
}

// SendMessageEvent - UI submits a line of user input
type SendMessageEvent struct {
	Message string
}

func (e SendMessageEvent) UIEvent() {}

// ApprovalResponseEvent - UI answers a pending approval request or question
type ApprovalResponseEvent struct {
	ID     string // Must match the ID from ApprovalRequestEvent
	Answer string // Raw human answer; the gate decides what counts as yes
}

func (e ApprovalResponseEvent) UIEvent() {}

// CancelTurnEvent - UI asks core to abandon the running turn
type CancelTurnEvent struct{}

func (e CancelTurnEvent) UIEvent() {}

// StateUpdateEvent - Core pushes processing state changes to UI
type StateUpdateEvent struct {
	Processing bool
	Error      error
}

func (e StateUpdateEvent) CoreEvent() {}

// NoticeEvent - Core shows a program message (welcome text, status)
type NoticeEvent struct {
	Text string
}

func (e NoticeEvent) CoreEvent() {}

// StreamEvent - a token or progress event of the running turn
type StreamEvent struct {
	Event stream.Event
}

func (e StreamEvent) CoreEvent() {}

// ApprovalRequestEvent - Core suspends a tool until the human answers
type ApprovalRequestEvent struct {
	Request approval.Request
}

func (e ApprovalRequestEvent) CoreEvent() {}

// EventBusError represents errors in event processing
type EventBusError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

func (e EventBusError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker stops sends after repeated failures until resetTimeout
// has passed.
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && time.Since(cb.lastFailureTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EventBus handles communication between UI and Core. Each direction has
// its own circuit breaker, so a stalled UI never blocks input to the core.
type EventBus struct {
	uiToCore      chan UIEvent
	coreToUI      chan CoreEvent
	errorCallback func(EventBusError)
	toCore        *CircuitBreaker
	toUI          *CircuitBreaker

	closeMu sync.RWMutex
	closed  bool
}

func NewEventBus() *EventBus {
	return &EventBus{
		uiToCore: make(chan UIEvent, 100),
		coreToUI: make(chan CoreEvent, 100),
		toCore:   NewCircuitBreaker(5, 30*time.Second),
		toUI:     NewCircuitBreaker(5, 30*time.Second),
	}
}

func (eb *EventBus) SetErrorCallback(callback func(EventBusError)) {
	eb.errorCallback = callback
}

func (eb *EventBus) reportError(cb *CircuitBreaker, operation string, err error) {
	cb.RecordFailure()
	if eb.errorCallback != nil {
		eb.errorCallback(EventBusError{
			Operation: operation,
			Err:       err,
			Timestamp: time.Now(),
		})
	}
}

func (eb *EventBus) SendToCore(event UIEvent) error {
	eb.closeMu.RLock()
	defer eb.closeMu.RUnlock()
	if eb.closed {
		return ErrClosed
	}
	if eb.toCore.IsOpen() {
		eb.reportError(eb.toCore, "SendToCore", ErrCircuitOpen)
		return ErrCircuitOpen
	}

	select {
	case eb.uiToCore <- event:
		eb.toCore.RecordSuccess()
		return nil
	default:
		eb.reportError(eb.toCore, "SendToCore", ErrChannelFull)
		return ErrChannelFull
	}
}

func (eb *EventBus) SendToUI(event CoreEvent) error {
	eb.closeMu.RLock()
	defer eb.closeMu.RUnlock()
	if eb.closed {
		return ErrClosed
	}
	if eb.toUI.IsOpen() {
		eb.reportError(eb.toUI, "SendToUI", ErrCircuitOpen)
		return ErrCircuitOpen
	}

	select {
	case eb.coreToUI <- event:
		eb.toUI.RecordSuccess()
		return nil
	default:
		eb.reportError(eb.toUI, "SendToUI", ErrChannelFull)
		return ErrChannelFull
	}
}

// PublishToUI blocks until the UI has room for event or ctx is done. It is
// used for stream events, which must not be dropped.
func (eb *EventBus) PublishToUI(ctx context.Context, event CoreEvent) error {
	eb.closeMu.RLock()
	defer eb.closeMu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	select {
	case eb.coreToUI <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApprovalNotifier surfaces approval requests to the UI through the bus. It
// waits for room like stream events do, until the request's ctx is done.
func (eb *EventBus) ApprovalNotifier() approval.Notifier {
	return func(ctx context.Context, req approval.Request) error {
		return eb.PublishToUI(ctx, ApprovalRequestEvent{Request: req})
	}
}

func (eb *EventBus) UIToCore() <-chan UIEvent {
	return eb.uiToCore
}

func (eb *EventBus) CoreToUI() <-chan CoreEvent {
	return eb.coreToUI
}

// GetCircuitBreakerState reports the breaker guarding core -> UI sends.
func (eb *EventBus) GetCircuitBreakerState() CircuitBreakerState {
	return eb.toUI.State()
}

// CoreCircuitBreakerState reports the breaker guarding UI -> core sends.
func (eb *EventBus) CoreCircuitBreakerState() CircuitBreakerState {
	return eb.toCore.State()
}

// Close closes both channels. Sends after Close return ErrClosed.
func (eb *EventBus) Close() {
	eb.closeMu.Lock()
	defer eb.closeMu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.uiToCore)
	close(eb.coreToUI)
}
