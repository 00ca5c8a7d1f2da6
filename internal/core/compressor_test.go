package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

func TestCompressAppendsSummaryToContext(t *testing.T) {
	inv := &scriptedInvoker{summary: "  the summary  "}
	conv := models.Conversation{Context: testPrompt, History: append(pairs(8), models.UserMessage("latest"))}

	require.NoError(t, NewCompressor(inv, nil).Compress(context.Background(), &conv))

	assert.Equal(t, testPrompt+"\nthe summary", conv.Context)
	require.Len(t, conv.History, 2)
	assert.Equal(t, summaryPrefix+"the summary", conv.History[0].Content)
	assert.Equal(t, "latest", conv.History[1].Content)

	req := inv.requests()[0]
	require.Len(t, req.History, 1)
	assert.Contains(t, req.History[0].Content, "[User]: question 3")
	assert.Empty(t, req.Tools)
}

func TestCompressFallsBackWhenSummaryFails(t *testing.T) {
	inv := &scriptedInvoker{failSum: errors.New("rate limited")}
	conv := models.Conversation{Context: testPrompt, History: pairs(9)}

	require.NoError(t, NewCompressor(inv, nil).Compress(context.Background(), &conv))

	assert.Equal(t, testPrompt, conv.Context)
	require.Len(t, conv.History, 2)
	assert.Equal(t, droppedHistory, conv.History[0].Content)
	assert.Equal(t, "question 8", conv.History[1].Content)
}

func TestCompressLeavesConversationOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := llm.InvokerFunc(func(ctx context.Context, req llm.Request) (models.Message, error) {
		return models.Message{}, ctx.Err()
	})
	conv := models.Conversation{Context: testPrompt, History: pairs(9)}

	err := NewCompressor(inv, nil).Compress(ctx, &conv)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, conv.History, 18)
}

func TestRepeatedCompressionDoesNotNestNotes(t *testing.T) {
	inv := &scriptedInvoker{summary: "s"}
	c := NewCompressor(inv, nil)
	conv := models.Conversation{History: []models.Message{models.UserMessage(summaryPrefix + "old")}}

	require.NoError(t, c.Compress(context.Background(), &conv))
	assert.Len(t, conv.History, 1)
	assert.Equal(t, "s", conv.Context)
}
