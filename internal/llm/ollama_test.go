package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChatStructured(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"{\"name\":\"Science Fair\"}"},"done":true}`))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "")
	resp, err := client.Chat(context.Background(), &Request{
		System:      "Extract the event information.",
		Messages:    []Message{UserMessage("Alice and Bob are going to a science fair on Friday.")},
		Format:      json.RawMessage(`{"type":"object"}`),
		Temperature: Float(0),
	})
	require.NoError(t, err)

	assert.Equal(t, `{"name":"Science Fair"}`, resp.Content)
	assert.Equal(t, StopEndTurn, resp.StopReason)

	assert.Equal(t, DefaultOllamaModel, got.Model)
	assert.False(t, got.Stream)
	assert.JSONEq(t, `{"type":"object"}`, string(got.Format))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	require.NotNil(t, got.Options)
	assert.Equal(t, 0.0, *got.Options.Temperature)
}

func TestOllamaChatToolCalls(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"get_weather","arguments":{"latitude":48.85,"longitude":2.35}}},
			{"function":{"name":"search_kb","arguments":"{\"question\":\"returns\"}"}}
		]},"done":true}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaClient(srv.URL, "llama3.2").Chat(context.Background(), &Request{
		Messages: []Message{
			UserMessage("weather?"),
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Name: "get_weather", Input: []byte(`{"latitude":1}`)}}},
			{Role: RoleTool, Content: `{"temperature_2m":7}`, ToolCallID: "call_0", ToolName: "get_weather"},
		},
		Tools: []ToolDefinition{{Name: "get_weather", Description: "weather"}, {Name: "search_kb"}},
	})
	require.NoError(t, err)

	assert.Equal(t, StopToolUse, resp.StopReason)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "call_0", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"latitude":48.85,"longitude":2.35}`, string(resp.ToolCalls[0].Input))
	assert.Equal(t, "call_1", resp.ToolCalls[1].ID)
	assert.JSONEq(t, `{"question":"returns"}`, string(resp.ToolCalls[1].Input))

	tools := got["tools"].([]interface{})
	params := tools[0].(map[string]interface{})["function"].(map[string]interface{})["parameters"].(map[string]interface{})
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, map[string]interface{}{}, params["properties"])

	msgs := got["messages"].([]interface{})
	toolMsg := msgs[2].(map[string]interface{})
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "get_weather", toolMsg["tool_name"])
}

func TestOllamaChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"message":{"role":"assistant","content":"Why did "},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":"the chicken"},"done":false}` + "\n\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}` + "\n"))
	}))
	defer srv.Close()

	var chunks []string
	resp, err := NewOllamaClient(srv.URL, "llama3.2").ChatStream(context.Background(), &Request{
		Messages: []Message{UserMessage("Tell me a joke")},
	}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Why did ", "the chicken"}, chunks)
	assert.Equal(t, "Why did the chicken", resp.Content)
}

func TestOllamaChatStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}` + "\n"))
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "missing").ChatStream(context.Background(), &Request{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaClient(srv.URL, "llama3.2").Chat(context.Background(), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	assert.True(t, NewOllamaClient(srv.URL, "").IsAvailable(context.Background()))
	srv.Close()

	assert.False(t, NewOllamaClient(srv.URL, "").IsAvailable(context.Background()))
}

func TestRawArguments(t *testing.T) {
	assert.Equal(t, `{}`, string(rawArguments(nil)))
	assert.Equal(t, `{}`, string(rawArguments([]byte("null"))))
	assert.Equal(t, `{"a":1}`, string(rawArguments([]byte(` {"a":1} `))))
	assert.Equal(t, `{"a":1}`, string(rawArguments([]byte(`"{\"a\":1}"`))))
}
