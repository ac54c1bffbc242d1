package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaude(t *testing.T, body string, got *map[string]interface{}) *ClaudeClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewClaudeClient("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
}

func TestClaudeChatStructured(t *testing.T) {
	var got map[string]interface{}
	client := newTestClaude(t, `{
		"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",
		"content":[{"type":"tool_use","id":"toolu_1","name":"structured_response","input":{"request_type":"new_event","confidence_score":0.9,"description":"meeting"}}],
		"stop_reason":"tool_use","usage":{"input_tokens":10,"output_tokens":5}
	}`, &got)

	resp, err := client.Chat(context.Background(), &Request{
		System:   "classify",
		Messages: []Message{UserMessage("schedule a meeting")},
		Format:   json.RawMessage(`{"type":"object","properties":{"request_type":{"type":"string"}},"required":["request_type"]}`),
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"request_type":"new_event","confidence_score":0.9,"description":"meeting"}`, resp.Content)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, StopEndTurn, resp.StopReason)

	assert.Equal(t, DefaultClaudeModel, got["model"])
	choice := got["tool_choice"].(map[string]interface{})
	assert.Equal(t, "tool", choice["type"])
	assert.Equal(t, structuredToolName, choice["name"])

	tools := got["tools"].([]interface{})
	require.Len(t, tools, 1)
	schema := tools[0].(map[string]interface{})["input_schema"].(map[string]interface{})
	assert.Equal(t, []interface{}{"request_type"}, schema["required"])
}

func TestClaudeChatToolUse(t *testing.T) {
	var got map[string]interface{}
	client := newTestClaude(t, `{
		"id":"msg_2","type":"message","role":"assistant","model":"claude-sonnet-4-20250514",
		"content":[
			{"type":"text","text":"Let me check."},
			{"type":"tool_use","id":"toolu_2","name":"search_kb","input":{"question":"returns"}}
		],
		"stop_reason":"tool_use","usage":{"input_tokens":10,"output_tokens":5}
	}`, &got)

	resp, err := client.Chat(context.Background(), &Request{
		Messages: []Message{UserMessage("What is the return policy?")},
		Tools:    []ToolDefinition{{Name: "search_kb", Parameters: map[string]interface{}{"question": map[string]interface{}{"type": "string"}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me check.", resp.Content)
	assert.Equal(t, StopToolUse, resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_2", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"question":"returns"}`, string(resp.ToolCalls[0].Input))
	assert.NotContains(t, got, "tool_choice")
}

func TestClaudeMessagesFoldToolResults(t *testing.T) {
	msgs := claudeMessages([]Message{
		UserMessage("weather and returns?"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "a", Name: "get_weather", Input: []byte(`{"latitude":1,"longitude":2}`)},
			{ID: "b", Name: "search_kb", Input: []byte(`{"question":"returns"}`)},
		}},
		{Role: RoleTool, ToolCallID: "a", Content: "7C"},
		{Role: RoleTool, ToolCallID: "b", Content: "30 days"},
		UserMessage("thanks"),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Len(t, msgs[1].Content, 2)

	results := msgs[2]
	assert.Equal(t, anthropic.MessageParamRoleUser, results.Role)
	require.Len(t, results.Content, 2)
	assert.Equal(t, "a", results.Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "b", results.Content[1].OfToolResult.ToolUseID)

	assert.False(t, isToolResultTurn(msgs[3]))
}
