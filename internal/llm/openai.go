package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIClientWithConfig accepts a prepared config so OpenAI-compatible
// gateways can be used by overriding BaseURL.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("openai/%s", c.model)
}

func (c *OpenAIClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "OpenAI API error")
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	msg := resp.Choices[0].Message
	response := &Response{
		Content:    msg.Content,
		StopReason: StopEndTurn,
	}
	for _, tc := range msg.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: rawArguments([]byte(tc.Function.Arguments)),
		})
	}
	if len(response.ToolCalls) > 0 {
		response.StopReason = StopToolUse
	}

	return response, nil
}

func (c *OpenAIClient) ChatStream(ctx context.Context, req *Request, onChunk func(string)) (*Response, error) {
	chatReq := c.buildRequest(req)
	chatReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, errors.Wrap(err, "OpenAI stream error")
	}
	defer stream.Close()

	var content strings.Builder
	calls := map[int]*ToolCall{}
	var order []int

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "OpenAI stream error")
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onChunk != nil {
				onChunk(delta.Content)
			}
		}

		for i, tc := range delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &ToolCall{}
				calls[idx] = call
				order = append(order, idx)
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Name = tc.Function.Name
			}
			call.Input = append(call.Input, tc.Function.Arguments...)
		}
	}

	response := &Response{
		Content:    content.String(),
		StopReason: StopEndTurn,
	}
	for _, idx := range order {
		call := *calls[idx]
		call.Input = rawArguments(call.Input)
		response.ToolCalls = append(response.ToolCalls, call)
	}
	if len(response.ToolCalls) > 0 {
		response.StopReason = StopToolUse
	}

	return response, nil
}

func (c *OpenAIClient) buildRequest(req *Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		switch m.Role {
		case RoleTool:
			msg.Role = openai.ChatMessageRoleTool
			msg.ToolCallID = m.ToolCallID
			msg.Name = m.ToolName
		case RoleAssistant:
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(rawArguments(tc.Input)),
					},
				})
			}
		}
		msgs = append(msgs, msg)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	}

	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  objectSchema(tool),
			},
		})
	}

	if req.Format != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: req.Format,
				Strict: true,
			},
		}
	}

	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	return chatReq
}
