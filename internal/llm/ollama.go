package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
)

type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(baseURL, model string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}

	return &OllamaClient{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (c *OllamaClient) Name() string {
	return fmt.Sprintf("ollama/%s", c.model)
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaTool struct {
	Type     string             `json:"type"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Ollama sends tool arguments as a JSON object, not an encoded string.
type ollamaToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

func (c *OllamaClient) Chat(ctx context.Context, req *Request) (*Response, error) {
	resp, err := c.do(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ollamaResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	response := &Response{
		Content:    ollamaResp.Message.Content,
		StopReason: StopEndTurn,
	}
	response.ToolCalls = convertOllamaToolCalls(ollamaResp.Message.ToolCalls)
	if len(response.ToolCalls) > 0 {
		response.StopReason = StopToolUse
	}

	return response, nil
}

// ChatStream reads the NDJSON stream Ollama emits when stream=true.
func (c *OllamaClient) ChatStream(ctx context.Context, req *Request, onChunk func(string)) (*Response, error) {
	resp, err := c.do(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	response := &Response{StopReason: StopEndTurn}
	var content bytes.Buffer

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, errors.Wrap(err, "failed to decode stream chunk")
		}
		if chunk.Error != "" {
			return nil, errors.Newf("ollama stream error: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if onChunk != nil {
				onChunk(chunk.Message.Content)
			}
		}
		response.ToolCalls = append(response.ToolCalls, convertOllamaToolCalls(chunk.Message.ToolCalls)...)

		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read stream")
	}

	response.Content = content.String()
	if len(response.ToolCalls) > 0 {
		response.StopReason = StopToolUse
	}
	return response, nil
}

func (c *OllamaClient) buildRequest(req *Request, stream bool) ollamaChatRequest {
	ollamaMessages := make([]ollamaMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		ollamaMessages = append(ollamaMessages, ollamaMessage{
			Role:    RoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		om := ollamaMessage{
			Role:     msg.Role,
			Content:  msg.Content,
			ToolName: msg.ToolName,
		}
		for _, tc := range msg.ToolCalls {
			var call ollamaToolCall
			call.ID = tc.ID
			call.Function.Name = tc.Name
			call.Function.Arguments = rawArguments(tc.Input)
			om.ToolCalls = append(om.ToolCalls, call)
		}
		ollamaMessages = append(ollamaMessages, om)
	}

	ollamaTools := make([]ollamaTool, 0, len(req.Tools))
	for _, tool := range req.Tools {
		ollamaTools = append(ollamaTools, ollamaTool{
			Type: "function",
			Function: ollamaToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  objectSchema(tool),
			},
		})
	}

	body := ollamaChatRequest{
		Model:    c.model,
		Messages: ollamaMessages,
		Tools:    ollamaTools,
		Format:   req.Format,
		Stream:   stream,
	}
	if req.Temperature != nil {
		body.Options = &ollamaOptions{Temperature: req.Temperature}
	}
	return body
}

func (c *OllamaClient) do(ctx context.Context, body ollamaChatRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "ollama request failed")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.Newf("ollama error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func convertOllamaToolCalls(calls []ollamaToolCall) []ToolCall {
	var out []ToolCall
	for i, tc := range calls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		out = append(out, ToolCall{
			ID:    id,
			Name:  tc.Function.Name,
			Input: rawArguments(tc.Function.Arguments),
		})
	}
	return out
}

// rawArguments normalises tool arguments to a JSON object. Some models
// double-encode the arguments as a JSON string.
func rawArguments(input []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
	}
	return json.RawMessage(trimmed)
}

func objectSchema(tool ToolDefinition) map[string]interface{} {
	properties := tool.Parameters
	if properties == nil {
		properties = map[string]interface{}{}
	}
	params := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(tool.Required) > 0 {
		params["required"] = tool.Required
	}
	return params
}
