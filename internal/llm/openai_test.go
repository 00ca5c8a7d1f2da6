package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigneshmj1997/CodingAgent/internal/config"
	"github.com/vigneshmj1997/CodingAgent/internal/models"
)

// sseServer replays the given chunks as a chat completion stream and
// records the last request body.
func sseServer(t *testing.T, chunks []string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			_ = json.Unmarshal(body, captured)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chunk(delta string) string {
	return `{"id":"c","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":` + delta + `}]}`
}

func TestOpenAIInvokerStreamsText(t *testing.T) {
	var body map[string]interface{}
	srv := sseServer(t, []string{
		chunk(`{"role":"assistant","content":"Hel"}`),
		chunk(`{"content":"lo"}`),
	}, &body)

	inv := NewOpenAIInvoker(config.Profile{APIKey: "k", Model: "gpt-test", BaseURL: srv.URL})
	var deltas []string
	msg, err := inv.Invoke(context.Background(), Request{
		System:  "be brief",
		History: []models.Message{models.UserMessage("hi")},
		Tools: []models.ToolSpec{{
			Name:       "read",
			Parameters: map[string]interface{}{"type": "object"},
		}},
		OnDelta: func(s string) { deltas = append(deltas, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssistantMessage("Hello"), msg)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)

	assert.Equal(t, "gpt-test", body["model"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Len(t, body["tools"], 1)
}

func TestOpenAIInvokerAssemblesToolCalls(t *testing.T) {
	srv := sseServer(t, []string{
		chunk(`{"role":"assistant","tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"read","arguments":""}}]}`),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"{\"path\":"}}]}`),
		chunk(`{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"shell","arguments":"{\"command\":\"ls\"}"}}]}`),
		chunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\"a.go\"}"}}]}`),
	}, nil)

	inv := NewOpenAIInvoker(config.Profile{APIKey: "k", Model: "m", BaseURL: srv.URL})
	msg, err := inv.Invoke(context.Background(), Request{History: []models.Message{models.UserMessage("go")}})
	require.NoError(t, err)
	require.True(t, msg.HasToolCalls())
	require.Len(t, msg.ToolCalls, 2)

	assert.Equal(t, "call_a", msg.ToolCalls[0].ID)
	assert.Equal(t, "read", msg.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"a.go"}`, string(msg.ToolCalls[0].Arguments))
	assert.Equal(t, "call_b", msg.ToolCalls[1].ID)
	assert.JSONEq(t, `{"command":"ls"}`, string(msg.ToolCalls[1].Arguments))
}

func TestOpenAIInvokerClassifiesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	inv := NewOpenAIInvoker(config.Profile{APIKey: "k", Model: "m", BaseURL: srv.URL})
	_, err := inv.Invoke(context.Background(), Request{History: []models.Message{models.UserMessage("hi")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.False(t, IsRetryable(err))
}

func TestToOpenAIMessagesKeepsToolLinks(t *testing.T) {
	history := []models.Message{
		models.UserMessage("list"),
		models.AssistantMessage("", models.ToolCall{ID: "c1", Name: "shell", Arguments: json.RawMessage(`{"command":"ls"}`)}),
		models.ToolResult{ToolCallID: "c1", Output: "a.go", Succeeded: true}.Message(),
	}
	msgs := toOpenAIMessages("", history)
	require.Len(t, msgs, 3)
	assert.Equal(t, "c1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, `{"command":"ls"}`, msgs[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "c1", msgs[2].ToolCallID)
	assert.True(t, strings.HasPrefix(msgs[2].Role, "tool"))
}
