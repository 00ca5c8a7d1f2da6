package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

func TestRenderMessages(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = "line"
	}
	out := RenderMessages([]models.Entry{
		{Kind: models.EntryUser, Content: "list files"},
		{Kind: models.EntryTool, Title: "shell", Content: `{"command":"ls"}`, Lines: lines, Done: true},
		{Kind: models.EntryAssistant, Content: "streaming"},
		{Kind: models.EntryError, Content: "boom"},
	}, 80, nil)

	assert.Contains(t, out, "You: list files")
	assert.Contains(t, out, `✓ shell {"command":"ls"}`)
	assert.Contains(t, out, "... 4 more lines")
	assert.Contains(t, out, "streaming")
	assert.Contains(t, out, "Error: boom")
}

func TestRenderInputShowsApproval(t *testing.T) {
	out := RenderInput("> ", &approval.Request{Kind: approval.KindConfirm, Description: "Permission to edit a.go", Preview: "-old\n+new"}, 60)
	assert.Contains(t, out, "Permission to edit a.go? [y/N]")
	assert.Contains(t, out, "+new")

	assert.NotContains(t, RenderInput("> ", nil, 60), "[y/N]")
}
