package llm

import (
	"context"
	"encoding/json"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

type ToolCall struct {
	ID    string
	Name  string
	Input []byte
}

type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
}

type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Required    []string
}

// Request is a single chat turn. When Format is set the model is asked to
// reply with JSON matching that schema.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Format      json.RawMessage
	Temperature *float64
}

type Client interface {
	Chat(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// StreamingClient is implemented by clients that can deliver the reply
// incrementally. onChunk is called once per content delta.
type StreamingClient interface {
	Client
	ChatStream(ctx context.Context, req *Request, onChunk func(string)) (*Response, error)
}

type Router interface {
	Route(query string) Client
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func ToolResultMessage(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

func Float(v float64) *float64 {
	return &v
}
