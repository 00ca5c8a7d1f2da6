package models

import "time"

// Conversation is the state of one thread: its history plus the system-level
// context block that is prepended to every model invocation.
type Conversation struct {
	ThreadID  string    `json:"thread_id"`
	History   []Message `json:"history"`
	Context   string    `json:"context"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c Conversation) Clone() Conversation {
	c.History = CloneMessages(c.History)
	return c
}

// LastAssistant returns the most recent assistant message, if any.
func (c Conversation) LastAssistant() (Message, bool) {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleAssistant {
			return c.History[i], true
		}
	}
	return Message{}, false
}

// LastUser returns the most recent user message, if any.
func (c Conversation) LastUser() (Message, bool) {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleUser {
			return c.History[i], true
		}
	}
	return Message{}, false
}
