package llm

import (
	"context"
	"strings"
)

type Provider string

const (
	ProviderAuto   Provider = "auto"
	ProviderLocal  Provider = "local"
	ProviderCloud  Provider = "cloud"
	ProviderOpenAI Provider = "openai"
)

type RouterConfig struct {
	Provider     Provider
	OllamaURL    string
	OllamaModel  string
	ClaudeAPIKey string
	ClaudeModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	PreferLocal  bool
}

// HybridRouter picks between a local Ollama model and a hosted model.
// Claude is the preferred hosted model; OpenAI is used when no Anthropic
// key is configured or when explicitly requested.
type HybridRouter struct {
	localClient *OllamaClient
	cloudClient Client
	provider    Provider
	preferLocal bool
	localAvail  bool
}

func NewHybridRouter(ctx context.Context, cfg RouterConfig) *HybridRouter {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAuto
	}

	router := &HybridRouter{
		provider:    provider,
		preferLocal: cfg.PreferLocal,
	}

	if provider != ProviderCloud && provider != ProviderOpenAI {
		router.localClient = NewOllamaClient(cfg.OllamaURL, cfg.OllamaModel)
		router.localAvail = router.localClient.IsAvailable(ctx)
	}

	switch {
	case provider == ProviderOpenAI && cfg.OpenAIAPIKey != "":
		router.cloudClient = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case provider == ProviderLocal:
	case cfg.ClaudeAPIKey != "":
		router.cloudClient = NewClaudeClient(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case cfg.OpenAIAPIKey != "":
		router.cloudClient = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	return router
}

// NewStaticRouter wires explicit clients, mainly for tests and embedding.
func NewStaticRouter(local *OllamaClient, cloud Client, preferLocal bool) *HybridRouter {
	return &HybridRouter{
		localClient: local,
		cloudClient: cloud,
		provider:    ProviderAuto,
		preferLocal: preferLocal,
		localAvail:  local != nil,
	}
}

func (r *HybridRouter) Route(query string) Client {
	switch r.provider {
	case ProviderLocal:
		if r.localClient != nil {
			return r.localClient
		}
		return nil
	case ProviderCloud, ProviderOpenAI:
		return r.cloudClient
	}

	if r.isComplexQuery(query) && r.cloudClient != nil {
		return r.cloudClient
	}

	if r.preferLocal && r.localAvail && r.localClient != nil {
		return r.localClient
	}

	if r.cloudClient != nil {
		return r.cloudClient
	}

	if r.localClient != nil {
		return r.localClient
	}

	return nil
}

// Fallback returns the client to retry with after primary failed, or nil.
func (r *HybridRouter) Fallback(primary Client) Client {
	if r.provider == ProviderLocal {
		return nil
	}
	if r.cloudClient != nil && primary != r.cloudClient {
		return r.cloudClient
	}
	return nil
}

func (r *HybridRouter) GetLocal() Client {
	if r.localClient != nil && r.localAvail {
		return r.localClient
	}
	return nil
}

func (r *HybridRouter) GetCloud() Client {
	return r.cloudClient
}

func (r *HybridRouter) LocalAvailable() bool {
	return r.localAvail
}

func (r *HybridRouter) isComplexQuery(query string) bool {
	query = strings.ToLower(query)

	complexIndicators := []string{
		"analyze",
		"compare",
		"summarize",
		"explain",
		"plan",
		"reschedule all",
		"step by step",
		"pros and cons",
	}

	for _, indicator := range complexIndicators {
		if strings.Contains(query, indicator) {
			return true
		}
	}

	simpleIndicators := []string{
		"schedule",
		"add",
		"set",
		"what is",
		"how many",
		"weather",
	}

	for _, indicator := range simpleIndicators {
		if strings.Contains(query, indicator) {
			return false
		}
	}

	return len(query) > 200
}

type ForcedClient struct {
	client Client
}

func ForceClient(c Client) *ForcedClient {
	return &ForcedClient{client: c}
}

func (f *ForcedClient) Route(query string) Client {
	return f.client
}
