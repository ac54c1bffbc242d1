package config

import (
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/nelssec/llm-workflows/internal/credentials"
	"github.com/nelssec/llm-workflows/internal/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "CLAUDE_MODEL", "OPENAI_MODEL",
		"OLLAMA_URL", "OLLAMA_MODEL", "PREFER_LOCAL", "LLM_PROVIDER",
		"LOG_LEVEL", "SERVER_PORT", "API_KEY_REQUIRED", "API_KEYS",
		"KB_PATH", "WEATHER_API_URL", "RATE_LIMIT", "ALLOWED_ORIGINS",
	} {
		// Setenv registers the restore; Unsetenv lets envconfig apply defaults.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.OllamaURL)
	assert.Equal(t, "llama3.2", cfg.OllamaModel)
	assert.Equal(t, "auto", cfg.LLMProvider)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "https://api.open-meteo.com", cfg.WeatherAPIURL)
	assert.Empty(t, cfg.AnthropicAPIKey)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoadKeyringFallback(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	require.NoError(t, credentials.Setup("sk-ant-stored", "sk-openai-stored"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-stored", cfg.AnthropicAPIKey)
	assert.Equal(t, "sk-openai-stored", cfg.OpenAIAPIKey)

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-env", cfg.AnthropicAPIKey)
}

func TestLoadProvider(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)

	t.Setenv("LLM_PROVIDER", " OpenAI ")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, llm.ProviderOpenAI, cfg.RouterConfig().Provider)

	t.Setenv("LLM_PROVIDER", "gemini")
	_, err = Load()
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestRequireModel(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"auto without keys", Config{LLMProvider: "auto"}, false},
		{"local", Config{LLMProvider: "local"}, false},
		{"cloud without key", Config{LLMProvider: "cloud"}, true},
		{"cloud with key", Config{LLMProvider: "cloud", AnthropicAPIKey: "k"}, false},
		{"openai without key", Config{LLMProvider: "openai", AnthropicAPIKey: "k"}, true},
		{"openai with key", Config{LLMProvider: "openai", OpenAIAPIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireModel()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	cfg := &Config{APIKeys: " a, b ,,"}
	assert.True(t, cfg.ValidateAPIKey("anything"), "keys not required")

	cfg.APIKeyRequired = true
	assert.Equal(t, map[string]bool{"a": true, "b": true}, cfg.GetAPIKeys())
	assert.True(t, cfg.ValidateAPIKey("a"))
	assert.False(t, cfg.ValidateAPIKey("c"))
	assert.False(t, cfg.ValidateAPIKey(""))

	cfg.APIKeys = ""
	assert.True(t, cfg.ValidateAPIKey(""), "no keys configured")
}

func TestOriginAllowed(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OriginAllowed("https://app.example.com"))
	assert.True(t, cfg.OriginAllowed("https://ADMIN.example.com"))
	assert.False(t, cfg.OriginAllowed("https://evil.example.net"))

	assert.True(t, (&Config{}).OriginAllowed("https://evil.example.net"), "unset allows any")
}
