package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIClientWithConfig(cfg, "")
}

func TestOpenAIChatStructured(t *testing.T) {
	var got map[string]interface{}
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"name\":\"Team Meeting\"}"},"finish_reason":"stop"}]}`))
	})

	resp, err := client.Chat(context.Background(), &Request{
		System:   "Extract the event information.",
		Messages: []Message{UserMessage("team meeting")},
		Format:   json.RawMessage(`{"type":"object","properties":{"name":{"type":"string"}}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Team Meeting"}`, resp.Content)
	assert.Equal(t, StopEndTurn, resp.StopReason)

	assert.Equal(t, openai.GPT4oMini, got["model"])
	format := got["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]interface{})
	assert.Equal(t, true, schema["strict"])
	assert.Equal(t, "response", schema["name"])

	msgs := got["messages"].([]interface{})
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
}

func TestOpenAIChatToolCalls(t *testing.T) {
	var got map[string]interface{}
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"","tool_calls":[
			{"id":"call_abc","type":"function","function":{"name":"get_weather","arguments":"{\"latitude\":48.85,\"longitude\":2.35}"}}
		]},"finish_reason":"tool_calls"}]}`))
	})

	resp, err := client.Chat(context.Background(), &Request{
		Messages: []Message{
			UserMessage("weather in paris"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_prev", Name: "search_kb", Input: []byte(`{"question":"x"}`)}}},
			{Role: RoleTool, Content: "[]", ToolCallID: "call_prev", ToolName: "search_kb"},
		},
		Tools: []ToolDefinition{{
			Name:       "get_weather",
			Parameters: map[string]interface{}{"latitude": map[string]interface{}{"type": "number"}},
			Required:   []string{"latitude"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, StopToolUse, resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "get_weather", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"latitude":48.85,"longitude":2.35}`, string(resp.ToolCalls[0].Input))

	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 3)
	toolMsg := msgs[2].(map[string]interface{})
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_prev", toolMsg["tool_call_id"])

	tools := got["tools"].([]interface{})
	fn := tools[0].(map[string]interface{})["function"].(map[string]interface{})
	assert.Equal(t, "get_weather", fn["name"])
	assert.Equal(t, []interface{}{"latitude"}, fn["parameters"].(map[string]interface{})["required"])
}

func TestOpenAIChatNoChoices(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Chat(context.Background(), &Request{Messages: []Message{UserMessage("hi")}})
	assert.Error(t, err)
}

func TestOpenAIChatStream(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, data := range []string{
			`{"choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"}}]}`,
			`{"choices":[{"index":0,"delta":{"content":", world"}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"search_kb","arguments":"{\"ques"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"tion\":\"returns\"}"}}]}}]}`,
			`[DONE]`,
		} {
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
	})

	var chunks []string
	resp, err := client.ChatStream(context.Background(), &Request{
		Messages: []Message{UserMessage("hi")},
	}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", ", world"}, chunks)
	assert.Equal(t, "Hello, world", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "search_kb", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"question":"returns"}`, string(resp.ToolCalls[0].Input))
	assert.Equal(t, StopToolUse, resp.StopReason)
}
