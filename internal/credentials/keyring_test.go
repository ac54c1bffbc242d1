package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSetupAndList(t *testing.T) {
	keyring.MockInit()

	require.NoError(t, Setup("sk-ant", ""))

	configured := ListConfigured()
	assert.True(t, configured[KeyAnthropic])
	assert.False(t, configured[KeyOpenAI])

	v, err := Get(KeyAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", v)
}

func TestGetOrEnv(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Set(KeyOpenAI, "stored"))

	assert.Equal(t, "env", GetOrEnv(KeyOpenAI, "env"))
	assert.Equal(t, "stored", GetOrEnv(KeyOpenAI, ""))
	assert.Equal(t, "", GetOrEnv(KeyAnthropic, ""))
}

func TestClearAll(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Set(KeyAnthropic, "x"))

	assert.NoError(t, ClearAll(), "missing keys are not an error")
	assert.False(t, ListConfigured()[KeyAnthropic])
}

func TestStoreSkipsEmpty(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, Set(KeyAnthropic, "kept"))

	require.NoError(t, Store(map[KeyType]string{KeyAnthropic: "", KeyOpenAI: "sk-openai"}))

	v, err := Get(KeyAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "kept", v)
	assert.Equal(t, "OpenAI API Key", KeyOpenAI.Label())
	assert.Equal(t, "other", KeyType("other").Label())
}
