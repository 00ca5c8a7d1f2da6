// Package stream multiplexes model token output and tool progress events to
// the console. Each logical channel has its own unbounded FIFO and pump, so a
// slow consumer of one channel never holds back the other and emitters never
// block.
package stream

import (
	"fmt"
	"sync"
	"time"
)

// Channel identifies one of the two logical output channels.
type Channel int

const (
	ChannelTokens Channel = iota
	ChannelProgress
)

func (c Channel) String() string {
	switch c {
	case ChannelTokens:
		return "tokens"
	case ChannelProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Kind identifies the type of an emitted event.
type Kind string

const (
	KindToken       Kind = "token"
	KindTokenEnd    Kind = "token_end"
	KindTurnEnd     Kind = "turn_end"
	KindToolStart   Kind = "tool_start"
	KindToolOutput  Kind = "tool_output"
	KindToolEnd     Kind = "tool_end"
	KindDiagnostic  Kind = "diagnostic"
	KindCompression Kind = "compression"
	KindInfo        Kind = "info"
)

// Event is a single item on one of the channels.
type Event struct {
	Channel   Channel
	Kind      Kind
	Text      string
	ToolName  string
	CallID    string
	Seq       uint64 // per-channel sequence number, starting at 1
	Timestamp time.Time
}

// queue is an unbounded FIFO drained into out by a single pump goroutine.
type queue struct {
	mu     sync.Mutex
	items  []Event
	seq    uint64
	closed bool
	wake   chan struct{}
	out    chan Event
}

func newQueue() *queue {
	q := &queue{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
	}
	go q.pump()
	return q
}

func (q *queue) push(evt Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.seq++
	evt.Seq = q.seq
	q.items = append(q.items, evt)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		evt := q.items[0]
		q.items[0] = Event{}
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- evt
	}
}

// Emitter delivers token and progress events to the console.
type Emitter struct {
	tokens   *queue
	progress *queue
	once     sync.Once
}

// NewEmitter creates an Emitter with both channels ready for consumption.
func NewEmitter() *Emitter {
	return &Emitter{
		tokens:   newQueue(),
		progress: newQueue(),
	}
}

// Emit enqueues an event on the channel named by evt.Channel. It never blocks.
// Events emitted after Close, or on a nil Emitter, are dropped.
func (e *Emitter) Emit(evt Event) {
	if e == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	switch evt.Channel {
	case ChannelTokens:
		e.tokens.push(evt)
	default:
		evt.Channel = ChannelProgress
		e.progress.push(evt)
	}
}

// Token emits a partial assistant output.
func (e *Emitter) Token(text string) {
	if text == "" {
		return
	}
	e.Emit(Event{Channel: ChannelTokens, Kind: KindToken, Text: text})
}

// TokenEnd marks the end of one streamed assistant message.
func (e *Emitter) TokenEnd() {
	e.Emit(Event{Channel: ChannelTokens, Kind: KindTokenEnd})
}

// TurnEnd marks the end of a turn on the token channel, after every token
// of that turn. errText is empty for a successful turn.
func (e *Emitter) TurnEnd(errText string) {
	e.Emit(Event{Channel: ChannelTokens, Kind: KindTurnEnd, Text: errText})
}

// Progress emits a progress event of the given kind.
func (e *Emitter) Progress(kind Kind, format string, args ...interface{}) {
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	e.Emit(Event{Channel: ChannelProgress, Kind: kind, Text: text})
}

// ToolProgress emits a progress event attributed to a tool call.
func (e *Emitter) ToolProgress(kind Kind, toolName, callID, text string) {
	e.Emit(Event{
		Channel:  ChannelProgress,
		Kind:     kind,
		Text:     text,
		ToolName: toolName,
		CallID:   callID,
	})
}

// Tokens returns the token-stream channel. It is closed after Close once
// every queued token has been delivered.
func (e *Emitter) Tokens() <-chan Event {
	return e.tokens.out
}

// ProgressEvents returns the progress channel.
func (e *Emitter) ProgressEvents() <-chan Event {
	return e.progress.out
}

// Close stops accepting events. Queued events are still delivered. Safe to
// call multiple times.
func (e *Emitter) Close() {
	e.once.Do(func() {
		e.tokens.close()
		e.progress.close()
	})
}
