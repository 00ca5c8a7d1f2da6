package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/vigneshmj1997/CodingAgent/internal/config"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// OpenAIInvoker streams chat completions from any OpenAI-compatible endpoint.
type OpenAIInvoker struct {
	client   *openai.Client
	provider string
	model    string
}

func NewOpenAIInvoker(p config.Profile) *OpenAIInvoker {
	var clientConfig openai.ClientConfig
	if p.ProviderName() == "azure" {
		clientConfig = openai.DefaultAzureConfig(p.APIKey, p.BaseURL)
	} else {
		clientConfig = openai.DefaultConfig(p.APIKey)
		if p.BaseURL != "" {
			clientConfig.BaseURL = p.BaseURL
		}
	}
	return &OpenAIInvoker{
		client:   openai.NewClientWithConfig(clientConfig),
		provider: p.ProviderName(),
		model:    p.Model,
	}
}

func (o *OpenAIInvoker) Invoke(ctx context.Context, req Request) (models.Message, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(req.System, req.History),
		Tools:    toOpenAITools(req.Tools),
		Stream:   true,
	})
	if err != nil {
		return models.Message{}, classifyOpenAI(o.provider, err)
	}
	defer stream.Close()

	var content strings.Builder
	calls := newCallAssembler()
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Message{}, classifyOpenAI(o.provider, err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			req.delta(delta.Content)
		}
		for _, tc := range delta.ToolCalls {
			calls.add(tc)
		}
	}

	return models.AssistantMessage(content.String(), calls.build()...), nil
}

func toOpenAIMessages(system string, history []models.Message) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case models.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, call := range m.ToolCalls {
				args := string(call.Arguments)
				if args == "" {
					args = "{}"
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}
			msgs = append(msgs, msg)
		case models.RoleTool:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return msgs
}

func toOpenAITools(specs []models.ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, len(specs))
	for i, spec := range specs {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		}
	}
	return tools
}

// callAssembler joins streamed tool-call fragments by their index.
type callAssembler struct {
	parts map[int]*partialCall
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

func newCallAssembler() *callAssembler {
	return &callAssembler{parts: make(map[int]*partialCall)}
}

func (a *callAssembler) add(tc openai.ToolCall) {
	idx := len(a.parts)
	if tc.Index != nil {
		idx = *tc.Index
	} else if tc.ID == "" && len(a.parts) > 0 {
		// Continuation fragment without an index.
		idx = len(a.parts) - 1
	}
	p, ok := a.parts[idx]
	if !ok {
		p = &partialCall{}
		a.parts[idx] = p
	}
	if tc.ID != "" {
		p.id = tc.ID
	}
	if p.name == "" {
		p.name = tc.Function.Name
	}
	p.args.WriteString(tc.Function.Arguments)
}

func (a *callAssembler) build() []models.ToolCall {
	if len(a.parts) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.parts))
	for idx := range a.parts {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]models.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		p := a.parts[idx]
		id := p.id
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		args := strings.TrimSpace(p.args.String())
		if args == "" {
			args = "{}"
		}
		if !json.Valid([]byte(args)) {
			// Keep malformed arguments as a JSON string so history stays encodable.
			quoted, _ := json.Marshal(args)
			args = string(quoted)
		}
		calls = append(calls, models.ToolCall{
			ID:        id,
			Name:      p.name,
			Arguments: json.RawMessage(args),
		})
	}
	return calls
}
