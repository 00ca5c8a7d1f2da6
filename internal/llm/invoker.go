// Package llm adapts model providers to the single call the agent loop needs:
// given the system context, the history and the advertised tools, return the
// next assistant message.
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/vigneshmj1997/CodingAgent/internal/config"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// Request is one model invocation.
type Request struct {
	System  string
	History []models.Message
	Tools   []models.ToolSpec
	OnDelta func(text string) // receives streamed text, may be nil
}

func (r Request) delta(text string) {
	if r.OnDelta != nil && text != "" {
		r.OnDelta(text)
	}
}

// Invoker returns the next assistant message for a request.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (models.Message, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, req Request) (models.Message, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (models.Message, error) {
	return f(ctx, req)
}

// openAICompatible providers speak the chat completions wire protocol.
var openAICompatible = map[string]string{
	"openai":     "",
	"azure":      "",
	"groq":       "https://api.groq.com/openai/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"deepseek":   "https://api.deepseek.com/v1",
}

// New builds the invoker for a profile, wrapped with the default retry policy.
func New(p config.Profile, logger *slog.Logger) (Invoker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var inv Invoker
	provider := p.ProviderName()
	if defaultURL, ok := openAICompatible[provider]; ok {
		if p.BaseURL == "" {
			p.BaseURL = defaultURL
		}
		inv = NewOpenAIInvoker(p)
	} else {
		g, err := NewGollmInvoker(p)
		if err != nil {
			return nil, err
		}
		inv = g
	}
	policy := DefaultRetryPolicy()
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("retrying model invocation", "provider", provider, "attempt", attempt, "delay", delay.String(), "error", err)
	}
	return WithRetry(inv, policy), nil
}
