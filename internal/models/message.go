package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model naming a tool and its arguments.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON object
}

// Args decodes the call arguments into a generic mapping. Empty arguments
// decode to an empty map.
func (tc ToolCall) Args() (map[string]interface{}, error) {
	args := make(map[string]interface{})
	if len(tc.Arguments) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(tc.Arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", tc.Name, err)
	}
	return args, nil
}

// ToolResult is the outcome of exactly one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
	Succeeded  bool   `json:"succeeded"`
}

// Message converts the result into the tool-role message appended to history.
func (r ToolResult) Message() Message {
	return Message{
		Role:       RoleTool,
		Content:    r.Output,
		ToolCallID: r.ToolCallID,
	}
}

// Message is a single entry of the conversation history.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool only
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// HasToolCalls reports whether the message is an assistant turn requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// ValidateHistory checks that every tool message references a tool call
// issued earlier in the same history.
func ValidateHistory(history []Message) error {
	issued := make(map[string]bool)
	for i, msg := range history {
		switch msg.Role {
		case RoleAssistant:
			for _, call := range msg.ToolCalls {
				issued[call.ID] = true
			}
		case RoleTool:
			if !issued[msg.ToolCallID] {
				return fmt.Errorf("message %d references unknown tool call %q", i, msg.ToolCallID)
			}
		case RoleUser:
		default:
			return fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
	}
	return nil
}

// CloneMessages returns a deep copy of a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, msg := range msgs {
		if len(msg.ToolCalls) > 0 {
			calls := make([]ToolCall, len(msg.ToolCalls))
			copy(calls, msg.ToolCalls)
			msg.ToolCalls = calls
		}
		out[i] = msg
	}
	return out
}

// ToolSpec is the schema of a callable tool as advertised to the model.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
	Mutating    bool                   `json:"mutating"`
}

// RenderTranscript flattens a history into plain text, one entry per line.
func RenderTranscript(history []Message) string {
	var b strings.Builder
	for _, m := range history {
		switch m.Role {
		case RoleUser:
			fmt.Fprintf(&b, "[User]: %s\n", m.Content)
		case RoleAssistant:
			if m.Content != "" {
				fmt.Fprintf(&b, "[Assistant]: %s\n", m.Content)
			}
			for _, call := range m.ToolCalls {
				fmt.Fprintf(&b, "[Tool Call %s]: %s %s\n", call.ID, call.Name, string(call.Arguments))
			}
		case RoleTool:
			fmt.Fprintf(&b, "[Tool Result %s]: %s\n", m.ToolCallID, m.Content)
		}
	}
	return b.String()
}
