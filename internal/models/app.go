package models

import "github.com/vigneshmj1997/CodingAgent/internal/approval"

// EntryKind says how a transcript entry is drawn.
type EntryKind int

const (
	EntryNotice EntryKind = iota
	EntryUser
	EntryAssistant
	EntryTool
	EntryError
)

// Entry is one block of the on-screen transcript.
type Entry struct {
	Kind    EntryKind
	Title   string // tool name for EntryTool
	Content string
	Lines   []string // streamed tool output
	Failed  bool
	Done    bool
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Entries         []Entry
	Status          string
	Processing      bool
	Width           int
	Height          int
	PendingApproval *approval.Request // Current approval request, answered by the next input line
	streaming       int               // 1-based index of the assistant entry receiving tokens, 0 if none
}

func NewAppModel() AppModel {
	return AppModel{Status: "Ready"}
}

// Add appends an entry and returns its index.
func (m *AppModel) Add(e Entry) int {
	m.Entries = append(m.Entries, e)
	return len(m.Entries) - 1
}

// AppendToken extends the assistant entry being streamed, starting one if
// needed.
func (m *AppModel) AppendToken(text string) {
	if m.streaming == 0 || m.streaming > len(m.Entries) {
		m.streaming = m.Add(Entry{Kind: EntryAssistant}) + 1
	}
	m.Entries[m.streaming-1].Content += text
}

// EndStream closes the assistant entry being streamed.
func (m *AppModel) EndStream() {
	if m.streaming > 0 && m.streaming <= len(m.Entries) {
		m.Entries[m.streaming-1].Done = true
	}
	m.streaming = 0
}

// Tool returns the most recent unfinished tool entry for name.
func (m *AppModel) Tool(name string) *Entry {
	for i := len(m.Entries) - 1; i >= 0; i-- {
		e := &m.Entries[i]
		if e.Kind == EntryTool && e.Title == name && !e.Done {
			return e
		}
	}
	return nil
}
