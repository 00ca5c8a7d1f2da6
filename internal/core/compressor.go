package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vigneshmj1997/CodingAgent/internal/llm"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

const summaryInstruction = `You are compressing the working memory of a coding assistant.
Summarise the conversation below so the assistant can continue the task without it.
Keep: the user's goal, decisions made, files read or changed (with paths), commands run and
their outcome, open problems and the next step. Drop greetings and repeated tool output.
Reply with the summary only.`

const (
	summaryPrefix  = "Summary of the conversation so far:\n"
	droppedHistory = "[earlier conversation dropped: summary unavailable]"
)

// Compressor replaces a long history with a model-written summary.
type Compressor struct {
	invoker llm.Invoker
	logger  *slog.Logger
}

func NewCompressor(invoker llm.Invoker, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compressor{invoker: invoker, logger: logger}
}

// Compress summarises conv.History. The summary is appended to the context
// block and the history is reduced to a summary note plus the latest user
// message, so the result is always shorter than the input. If the model
// fails the history is still truncated; only cancellation leaves conv
// untouched.
func (c *Compressor) Compress(ctx context.Context, conv *models.Conversation) error {
	before := len(conv.History)

	msg, err := c.invoker.Invoke(ctx, llm.Request{
		System:  summaryInstruction,
		History: []models.Message{models.UserMessage(models.RenderTranscript(conv.History))},
	})
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil) {
		return fmt.Errorf("compression interrupted: %w", err)
	}

	summary := ""
	if err == nil {
		summary = strings.TrimSpace(msg.Content)
	} else {
		c.logger.Warn("summary failed, dropping history", "error", err, "messages", before)
	}

	note := droppedHistory
	if summary != "" {
		note = summaryPrefix + summary
		if conv.Context == "" {
			conv.Context = summary
		} else {
			conv.Context = conv.Context + "\n" + summary
		}
	}

	history := []models.Message{models.UserMessage(note)}
	if last, ok := conv.LastUser(); ok && !isSummaryNote(last.Content) {
		history = append(history, last)
	}
	conv.History = history

	c.logger.Info("history compressed", "before", before, "after", len(history))
	return nil
}

func isSummaryNote(content string) bool {
	return strings.HasPrefix(content, summaryPrefix) || content == droppedHistory
}
