package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"

	"github.com/vigneshmj1997/CodingAgent/internal/config"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// GollmInvoker serves providers without an OpenAI-compatible endpoint
// (anthropic, ollama, mistral, cohere). gollm takes a single prompt, so the
// history is rendered as a transcript and tool calls are recovered from the
// JSON the model writes in its reply.
type GollmInvoker struct {
	llm      gollm.LLM
	provider string
}

func NewGollmInvoker(p config.Profile) (*GollmInvoker, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(p.ProviderName()),
		gollm.SetModel(p.Model),
		gollm.SetMaxTokens(4096),
		gollm.SetTemperature(0.2),
		gollm.SetMaxRetries(0), // retried by WithRetry
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if p.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(p.APIKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", p.ProviderName(), err)
	}
	return &GollmInvoker{llm: llm, provider: p.ProviderName()}, nil
}

func (g *GollmInvoker) Invoke(ctx context.Context, req Request) (models.Message, error) {
	prompt := buildGollmPrompt(req)

	var text string
	if req.OnDelta != nil && g.llm.SupportsStreaming() {
		streamed, err := g.stream(ctx, prompt, req)
		if err != nil {
			return models.Message{}, err
		}
		text = streamed
	} else {
		generated, err := g.llm.Generate(ctx, prompt)
		if err != nil {
			return models.Message{}, classifyMessage(g.provider, err)
		}
		text = generated
		req.delta(text)
	}

	calls := parseToolCalls(text)
	return models.AssistantMessage(stripToolCallJSON(text, calls), calls...), nil
}

func (g *GollmInvoker) stream(ctx context.Context, prompt *gollm.Prompt, req Request) (string, error) {
	stream, err := g.llm.Stream(ctx, prompt)
	if err != nil {
		return "", classifyMessage(g.provider, err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		token, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", classifyMessage(g.provider, err)
		}
		if token == nil {
			continue
		}
		full.WriteString(token.Text)
		req.delta(token.Text)
	}
	return full.String(), nil
}

func buildGollmPrompt(req Request) *gollm.Prompt {
	var opts []gollm.PromptOption
	if req.System != "" {
		opts = append(opts, gollm.WithSystemPrompt(req.System, gollm.CacheTypeEphemeral))
	}
	if len(req.Tools) > 0 {
		tools := make([]gollm.Tool, len(req.Tools))
		for i, spec := range req.Tools {
			tools[i] = gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        spec.Name,
					Description: spec.Description,
					Parameters:  spec.Parameters,
				},
			}
		}
		opts = append(opts, gollm.WithTools(tools), gollm.WithToolChoice("auto"))
	}
	return gollm.NewPrompt(renderTranscript(req.History, len(req.Tools) > 0), opts...)
}

// renderTranscript flattens history into a single prompt.
func renderTranscript(history []models.Message, withTools bool) string {
	text := models.RenderTranscript(history)
	if withTools {
		text += "\nTo call tools, reply with a JSON array such as " +
			`[{"name": "read", "arguments": {"path": "main.go"}}]` +
			" after any text. Otherwise answer normally.\n"
	}
	if text == "" {
		return "Hello"
	}
	return text
}

// parseToolCalls extracts a trailing JSON array of {"name", "arguments"}
// objects from model text.
func parseToolCalls(text string) []models.ToolCall {
	_, calls := trailingToolCalls(text)
	return calls
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// trailingToolCalls finds the array of named calls that ends the text,
// whatever its layout, and returns where it starts. Arrays nested in the
// arguments never reach the end of the text, so they are skipped.
func trailingToolCalls(text string) (int, []models.ToolCall) {
	for start := strings.LastIndexByte(text, '['); start >= 0; start = strings.LastIndexByte(text[:start], '[') {
		var raw []rawToolCall
		dec := json.NewDecoder(strings.NewReader(text[start:]))
		if err := dec.Decode(&raw); err != nil || len(raw) == 0 {
			continue
		}
		if strings.TrimSpace(text[start+int(dec.InputOffset()):]) != "" {
			continue
		}
		if calls := toToolCalls(raw); len(calls) > 0 {
			return start, calls
		}
	}
	return -1, nil
}

func toToolCalls(raw []rawToolCall) []models.ToolCall {
	calls := make([]models.ToolCall, 0, len(raw))
	for _, rc := range raw {
		if rc.Name == "" {
			continue
		}
		args := rc.Arguments
		if len(args) == 0 || string(args) == "null" {
			args = json.RawMessage("{}")
		}
		calls = append(calls, models.ToolCall{
			ID:        "call_" + uuid.New().String()[:8],
			Name:      rc.Name,
			Arguments: args,
		})
	}
	return calls
}

func stripToolCallJSON(text string, calls []models.ToolCall) string {
	if len(calls) == 0 {
		return text
	}
	if idx, _ := trailingToolCalls(text); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
