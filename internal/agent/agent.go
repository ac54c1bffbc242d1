package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/structured"
)

const (
	WeatherPrompt   = "You are a helpful weather assistant."
	KnowledgePrompt = "You are a helpful assistant that answers questions from the knowledge base about our e-commerce store."
	ChatPrompt      = "You are a helpful assistant. You answer questions clearly, concisely, and to the best of your ability."
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// fallbackRouter is implemented by routers that can offer a second client
// when the first one fails.
type fallbackRouter interface {
	Fallback(primary llm.Client) llm.Client
}

type Agent struct {
	router       llm.Router
	toolHandler  *ToolHandler
	logger       zerolog.Logger
	maxTurns     int
	systemPrompt string
}

func NewAgent(router llm.Router, toolHandler *ToolHandler, systemPrompt string, logger zerolog.Logger) *Agent {
	if toolHandler == nil {
		toolHandler = NewToolHandler()
	}
	return &Agent{
		router:       router,
		toolHandler:  toolHandler,
		logger:       logger,
		maxTurns:     15,
		systemPrompt: systemPrompt,
	}
}

// RunRequest is one user turn. When Format is set and the model used at
// least one tool, a final call constrains the answer to that schema.
type RunRequest struct {
	Question string
	History  []Message
	Format   json.RawMessage
}

type RunResult struct {
	Content    string
	ToolsUsed  []string
	Structured bool
	History    []Message
}

func (a *Agent) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	client := a.router.Route(req.Question)
	if client == nil {
		return nil, errors.WithHint(errors.New("no LLM client available"),
			"set ANTHROPIC_API_KEY or OPENAI_API_KEY, or ensure Ollama is running")
	}

	tools := a.toolHandler.Definitions()
	a.logger.Info().
		Str("client", client.Name()).
		Str("tools", describeTools(tools)).
		Str("query", truncate(req.Question, 50)).
		Msg("routing query")

	messages := a.buildMessages(req.History, req.Question)
	result := &RunResult{}
	done := false
	turn := 0

	for turn < a.maxTurns {
		turn++
		a.logger.Debug().Int("turn", turn).Str("client", client.Name()).Msg("agent turn")

		resp, err := client.Chat(ctx, &llm.Request{
			System:   a.systemPrompt,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			if fr, ok := a.router.(fallbackRouter); ok {
				if next := fr.Fallback(client); next != nil {
					a.logger.Warn().Err(err).Str("fallback", next.Name()).Msg("model failed, falling back")
					client = next
					continue
				}
			}
			return nil, errors.Wrap(err, "LLM error")
		}

		if len(resp.ToolCalls) == 0 {
			result.Content = resp.Content
			done = true
			break
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			a.logger.Info().Str("tool", tc.Name).Msg("executing tool")

			output, err := a.toolHandler.ExecuteTool(ctx, tc.Name, tc.Input)
			if err != nil {
				a.logger.Error().Err(err).Str("tool", tc.Name).Msg("tool execution failed")
				output = fmt.Sprintf("Error: %v", err)
			}

			result.ToolsUsed = append(result.ToolsUsed, tc.Name)
			messages = append(messages, llm.ToolResultMessage(tc, output))
		}
	}

	if !done {
		return nil, errors.Newf("max turns (%d) exceeded", a.maxTurns)
	}

	if req.Format != nil && len(result.ToolsUsed) > 0 {
		resp, err := client.Chat(ctx, &llm.Request{
			System:   a.systemPrompt,
			Messages: messages,
			Tools:    tools,
			Format:   req.Format,
		})
		if err != nil {
			return nil, errors.Wrap(err, "LLM error")
		}
		result.Content = resp.Content
		result.Structured = true
	}

	result.History = append(append([]Message{}, req.History...),
		Message{Role: llm.RoleUser, Content: req.Question},
		Message{Role: llm.RoleAssistant, Content: result.Content},
	)

	return result, nil
}

// Chat runs a free-form turn and returns the updated history.
func (a *Agent) Chat(ctx context.Context, userMessage string, history []Message) (string, []Message, error) {
	result, err := a.Run(ctx, RunRequest{Question: userMessage, History: history})
	if err != nil {
		return "", nil, err
	}
	return result.Content, result.History, nil
}

// Stream answers without tools, delivering the reply through onChunk as it
// is generated. Clients without streaming support deliver one chunk.
func (a *Agent) Stream(ctx context.Context, userMessage string, history []Message, onChunk func(string)) (string, []Message, error) {
	client := a.router.Route(userMessage)
	if client == nil {
		return "", nil, errors.New("no LLM client available")
	}

	req := &llm.Request{
		System:   a.systemPrompt,
		Messages: a.buildMessages(history, userMessage),
	}

	var resp *llm.Response
	var err error
	if sc, ok := client.(llm.StreamingClient); ok {
		resp, err = sc.ChatStream(ctx, req, onChunk)
	} else {
		resp, err = client.Chat(ctx, req)
		if err == nil && onChunk != nil {
			onChunk(resp.Content)
		}
	}
	if err != nil {
		return "", nil, errors.Wrap(err, "LLM error")
	}

	history = append(append([]Message{}, history...),
		Message{Role: llm.RoleUser, Content: userMessage},
		Message{Role: llm.RoleAssistant, Content: resp.Content},
	)
	return resp.Content, history, nil
}

// Ask runs question through the agent and decodes the answer into T when
// a tool was used. Otherwise it returns nil and the plain reply.
func Ask[T any](ctx context.Context, a *Agent, question string) (*T, *RunResult, error) {
	schema, err := structured.SchemaFor[T]()
	if err != nil {
		return nil, nil, err
	}

	result, err := a.Run(ctx, RunRequest{Question: question, Format: schema})
	if err != nil {
		return nil, nil, err
	}
	if !result.Structured {
		return nil, result, nil
	}

	out, err := structured.Decode[T](result.Content)
	if err != nil {
		return nil, result, err
	}
	return out, result, nil
}

func (a *Agent) buildMessages(history []Message, currentMessage string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)

	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, llm.UserMessage(currentMessage))

	return messages
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
