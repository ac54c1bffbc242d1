package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/nelssec/llm-workflows/internal/credentials"
	"github.com/nelssec/llm-workflows/internal/llm"
)

type Config struct {
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	ClaudeModel     string `envconfig:"CLAUDE_MODEL"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel     string `envconfig:"OPENAI_MODEL"`

	OllamaURL   string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`
	PreferLocal bool   `envconfig:"PREFER_LOCAL" default:"false"`
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"auto"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort     int    `envconfig:"SERVER_PORT" default:"8080"`
	APIKeyRequired bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
	APIKeys        string `envconfig:"API_KEYS"`
	// RateLimit caps model-backed API requests per minute across all
	// clients. Zero disables the limit.
	RateLimit int `envconfig:"RATE_LIMIT" default:"0"`
	// AllowedOrigins lists browser origins the API accepts. "*" allows any.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	KBPath        string `envconfig:"KB_PATH"`
	WeatherAPIURL string `envconfig:"WEATHER_API_URL" default:"https://api.open-meteo.com"`
}

var validProviders = map[llm.Provider]bool{
	llm.ProviderAuto:   true,
	llm.ProviderLocal:  true,
	llm.ProviderCloud:  true,
	llm.ProviderOpenAI: true,
}

// Load reads a .env file when present, then the environment, then fills
// missing API keys from the OS keyring.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	cfg.AnthropicAPIKey = credentials.GetOrEnv(credentials.KeyAnthropic, cfg.AnthropicAPIKey)
	cfg.OpenAIAPIKey = credentials.GetOrEnv(credentials.KeyOpenAI, cfg.OpenAIAPIKey)

	if err := cfg.SetProvider(cfg.LLMProvider); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetProvider normalises and validates name before storing it.
func (c *Config) SetProvider(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !validProviders[llm.Provider(name)] {
		return errors.WithHint(errors.Newf("unknown LLM provider: %s", name),
			"use one of auto, local, cloud, openai")
	}
	c.LLMProvider = name
	return nil
}

// RouterConfig maps the loaded settings onto the model router.
func (c *Config) RouterConfig() llm.RouterConfig {
	return llm.RouterConfig{
		Provider:     llm.Provider(c.LLMProvider),
		OllamaURL:    c.OllamaURL,
		OllamaModel:  c.OllamaModel,
		ClaudeAPIKey: c.AnthropicAPIKey,
		ClaudeModel:  c.ClaudeModel,
		OpenAIAPIKey: c.OpenAIAPIKey,
		OpenAIModel:  c.OpenAIModel,
		PreferLocal:  c.PreferLocal,
	}
}

// RequireModel reports an error when the chosen provider has no credentials.
// Local and auto can always try Ollama.
func (c *Config) RequireModel() error {
	switch llm.Provider(c.LLMProvider) {
	case llm.ProviderCloud:
		if c.AnthropicAPIKey == "" {
			return errors.WithHint(errors.New("ANTHROPIC_API_KEY is required for the cloud provider"),
				"run 'llm-workflows config setup' or export ANTHROPIC_API_KEY")
		}
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.WithHint(errors.New("OPENAI_API_KEY is required for the openai provider"),
				"run 'llm-workflows config setup' or export OPENAI_API_KEY")
		}
	}
	return nil
}

func (c *Config) GetAPIKeys() map[string]bool {
	keys := make(map[string]bool)
	if c.APIKeys == "" {
		return keys
	}
	for _, key := range strings.Split(c.APIKeys, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			keys[key] = true
		}
	}
	return keys
}

func (c *Config) ValidateAPIKey(key string) bool {
	if !c.APIKeyRequired {
		return true
	}
	keys := c.GetAPIKeys()
	if len(keys) == 0 {
		return true
	}
	return keys[key]
}

// CORSOrigins returns the configured origins, or "*" when none are set.
func (c *Config) CORSOrigins() []string {
	if len(c.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.AllowedOrigins
}

// OriginAllowed reports whether a browser at origin may use the API.
func (c *Config) OriginAllowed(origin string) bool {
	for _, o := range c.CORSOrigins() {
		o = strings.TrimSpace(o)
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
