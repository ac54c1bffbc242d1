package agent

import "context"

// ChatAgent is the conversational surface the API and CLI depend on.
type ChatAgent interface {
	Chat(ctx context.Context, userMessage string, history []Message) (string, []Message, error)
	Stream(ctx context.Context, userMessage string, history []Message, onChunk func(string)) (string, []Message, error)
}

var _ ChatAgent = (*Agent)(nil)
