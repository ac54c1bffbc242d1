package routing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/structured"
)

type confirmation struct {
	Message string `json:"confirmation_message" jsonschema:"description=Natural language confirmation message"`
}

// ModelFormatter phrases handler results with one further model call.
type ModelFormatter struct {
	client llm.Client
	prompt string
}

func NewModelFormatter(client llm.Client, prompt string) *ModelFormatter {
	return &ModelFormatter{client: client, prompt: prompt}
}

func (f *ModelFormatter) Format(ctx context.Context, input string, resp *Response) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("User request: %s\n", input))
	sb.WriteString(fmt.Sprintf("Result: %s\n", resp.Message))

	if len(resp.Fields) > 0 {
		keys := make([]string, 0, len(resp.Fields))
		for k := range resp.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("Fields:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", k, resp.Fields[k]))
		}
	}

	out, err := structured.Generate[confirmation](ctx, f.client, &llm.Request{
		System:   f.prompt,
		Messages: []llm.Message{llm.UserMessage(sb.String())},
	})
	if err != nil {
		return "", err
	}
	return out.Message, nil
}
