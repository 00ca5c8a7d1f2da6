package tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConfirmator struct {
	approve bool

	mu       sync.Mutex
	requests []string
	previews []string
}

func (f *fakeConfirmator) Confirm(ctx context.Context, description, preview string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, description)
	f.previews = append(f.previews, preview)
	return f.approve
}

func (f *fakeConfirmator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeAsker struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (string, error) {
	f.asked = append(f.asked, question)
	return f.answer, f.err
}

// progressLog collects Progress lines of a Call.
type progressLog struct {
	mu    sync.Mutex
	lines []string
}

func (p *progressLog) add(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
}

func (p *progressLog) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func newCall(t *testing.T, args interface{}) (Call, *progressLog) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	log := &progressLog{}
	return Call{ID: "call_test", Args: raw, Progress: log.add}, log
}
