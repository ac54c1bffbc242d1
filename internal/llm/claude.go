package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
)

const DefaultClaudeModel = "claude-sonnet-4-20250514"

// structuredToolName is the synthetic tool Claude is forced to call when a
// request carries a response schema.
const structuredToolName = "structured_response"

type ClaudeClient struct {
	client anthropic.Client
	model  string
}

func NewClaudeClient(apiKey, model string, opts ...option.RequestOption) *ClaudeClient {
	if model == "" {
		model = DefaultClaudeModel
	}

	return &ClaudeClient{
		client: anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
	}
}

func (c *ClaudeClient) Name() string {
	return fmt.Sprintf("claude/%s", c.model)
}

func (c *ClaudeClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "Claude API error")
	}

	return convertClaudeMessage(resp, req.Format != nil), nil
}

func (c *ClaudeClient) ChatStream(ctx context.Context, req *Request, onChunk func(string)) (*Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, errors.Wrap(err, "failed to accumulate stream event")
		}

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if onChunk != nil {
					onChunk(delta.Text)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, errors.Wrap(err, "Claude stream error")
	}

	return convertClaudeMessage(&message, req.Format != nil), nil
}

func (c *ClaudeClient) buildParams(req *Request) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages:  claudeMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	anthropicTools := make([]anthropic.ToolParam, 0, len(req.Tools)+1)
	for _, tool := range req.Tools {
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: tool.Parameters,
				Required:   tool.Required,
			},
		})
	}

	if req.Format != nil {
		var schema struct {
			Properties map[string]interface{} `json:"properties"`
			Required   []string               `json:"required"`
		}
		if err := json.Unmarshal(req.Format, &schema); err != nil {
			return params, errors.Wrap(err, "invalid response schema")
		}
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        structuredToolName,
			Description: anthropic.String("Reply to the user by calling this tool with the response fields."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema.Properties,
				Required:   schema.Required,
			},
		})
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredToolName},
		}
	}

	if len(anthropicTools) > 0 {
		toolUnions := make([]anthropic.ToolUnionParam, len(anthropicTools))
		for i := range anthropicTools {
			toolUnions[i] = anthropic.ToolUnionParam{
				OfTool: &anthropicTools[i],
			}
		}
		params.Tools = toolUnions
	}

	return params, nil
}

// claudeMessages maps the provider-neutral history onto Claude's block model.
// Consecutive tool results are folded into a single user turn.
func claudeMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: rawArguments(tc.Input),
					},
				})
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case RoleTool:
			block := anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: msg.ToolCallID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
					},
				},
			}
			if n := len(out); n > 0 && out[n-1].Role == anthropic.MessageParamRoleUser && isToolResultTurn(out[n-1]) {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{block},
			})
		default:
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(msg.Content),
				},
			})
		}
	}

	return out
}

func isToolResultTurn(msg anthropic.MessageParam) bool {
	for _, block := range msg.Content {
		if block.OfToolResult == nil {
			return false
		}
	}
	return len(msg.Content) > 0
}

func convertClaudeMessage(resp *anthropic.Message, structured bool) *Response {
	response := &Response{
		StopReason: StopEndTurn,
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			response.Content += block.Text
		case "tool_use":
			if structured && block.Name == structuredToolName {
				response.Content = string(block.Input)
				continue
			}
			response.ToolCalls = append(response.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: []byte(block.Input),
			})
		}
	}

	if len(response.ToolCalls) > 0 {
		response.StopReason = StopToolUse
	}

	return response
}
