package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/nelssec/llm-workflows/internal/knowledge"
	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/weather"
)

const (
	ToolGetWeather = "get_weather"
	ToolSearchKB   = "search_kb"
)

// ErrUnknownTool is returned for tool names the handler does not serve.
var ErrUnknownTool = errors.New("unknown tool")

type toolFunc func(ctx context.Context, input json.RawMessage) (string, error)

type registeredTool struct {
	def llm.ToolDefinition
	run toolFunc
}

// ToolHandler executes the tools the model is allowed to call.
type ToolHandler struct {
	tools map[string]registeredTool
}

func NewToolHandler() *ToolHandler {
	return &ToolHandler{tools: make(map[string]registeredTool)}
}

// WithWeather exposes get_weather backed by client.
func (h *ToolHandler) WithWeather(client *weather.Client) *ToolHandler {
	h.register(llm.ToolDefinition{
		Name:        ToolGetWeather,
		Description: "Get current temperature for provided coordinates in celsius.",
		Parameters: map[string]interface{}{
			"latitude":  map[string]interface{}{"type": "number"},
			"longitude": map[string]interface{}{"type": "number"},
		},
		Required: []string{"latitude", "longitude"},
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return getWeather(ctx, client, input)
	})
	return h
}

// WithKnowledgeBase exposes search_kb backed by kb.
func (h *ToolHandler) WithKnowledgeBase(kb *knowledge.Base) *ToolHandler {
	h.register(llm.ToolDefinition{
		Name:        ToolSearchKB,
		Description: "Get the answer to the user's question from the knowledge base.",
		Parameters: map[string]interface{}{
			"question": map[string]interface{}{"type": "string"},
		},
		Required: []string{"question"},
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		return searchKB(kb, input)
	})
	return h
}

func (h *ToolHandler) register(def llm.ToolDefinition, run toolFunc) {
	h.tools[def.Name] = registeredTool{def: def, run: run}
}

func (h *ToolHandler) Definitions() []llm.ToolDefinition {
	names := make([]string, 0, len(h.tools))
	for name := range h.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, h.tools[name].def)
	}
	return defs
}

func (h *ToolHandler) ExecuteTool(ctx context.Context, name string, input json.RawMessage) (string, error) {
	tool, ok := h.tools[name]
	if !ok {
		return "", errors.Wrapf(ErrUnknownTool, "%s", name)
	}
	return tool.run(ctx, input)
}

type getWeatherInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func getWeather(ctx context.Context, client *weather.Client, input json.RawMessage) (string, error) {
	var params getWeatherInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", errors.Wrap(err, "invalid input")
	}
	if params.Latitude == nil || params.Longitude == nil {
		return "", errors.New("latitude and longitude are required")
	}

	w, err := client.Current(ctx, *params.Latitude, *params.Longitude)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(w)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode weather")
	}
	return string(b), nil
}

type searchKBInput struct {
	Question string `json:"question"`
}

func searchKB(kb *knowledge.Base, input json.RawMessage) (string, error) {
	var params searchKBInput
	if err := json.Unmarshal(input, &params); err != nil {
		return "", errors.Wrap(err, "invalid input")
	}

	b, err := json.Marshal(knowledge.Base{Records: kb.Search(params.Question)})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode records")
	}
	return string(b), nil
}

func describeTools(defs []llm.ToolDefinition) string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return fmt.Sprintf("[%s]", strings.Join(names, ", "))
}
