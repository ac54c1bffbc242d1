// Package credentials keeps provider API keys in the OS keychain so they do
// not have to live in the environment or a .env file.
package credentials

import (
	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
)

const serviceName = "llm-workflows"

type KeyType string

const (
	KeyAnthropic KeyType = "anthropic_api_key"
	KeyOpenAI    KeyType = "openai_api_key"
)

// Keys lists every stored key in display order.
var Keys = []KeyType{KeyAnthropic, KeyOpenAI}

var labels = map[KeyType]string{
	KeyAnthropic: "Anthropic API Key",
	KeyOpenAI:    "OpenAI API Key",
}

// Label is the human name of key.
func (k KeyType) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

func Set(key KeyType, value string) error {
	return keyring.Set(serviceName, string(key), value)
}

func Get(key KeyType) (string, error) {
	return keyring.Get(serviceName, string(key))
}

func Delete(key KeyType) error {
	return keyring.Delete(serviceName, string(key))
}

// GetOrEnv prefers envValue and falls back to the keyring.
func GetOrEnv(key KeyType, envValue string) string {
	if envValue != "" {
		return envValue
	}
	val, err := Get(key)
	if err != nil {
		return ""
	}
	return val
}

func ListConfigured() map[KeyType]bool {
	result := make(map[KeyType]bool, len(Keys))
	for _, k := range Keys {
		_, err := Get(k)
		result[k] = err == nil
	}
	return result
}

// ClearAll removes every stored key. Keys that were never set are skipped.
func ClearAll() error {
	var errs error
	for _, k := range Keys {
		if err := Delete(k); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to delete %s", k.Label()))
		}
	}
	return errs
}

// Store saves the non-empty values and leaves the other keys untouched.
func Store(values map[KeyType]string) error {
	for _, k := range Keys {
		v := values[k]
		if v == "" {
			continue
		}
		if err := Set(k, v); err != nil {
			return errors.Wrapf(err, "failed to store %s", k.Label())
		}
	}
	return nil
}

// Setup stores the Anthropic and OpenAI keys, skipping empty ones.
func Setup(anthropicKey, openAIKey string) error {
	return Store(map[KeyType]string{
		KeyAnthropic: anthropicKey,
		KeyOpenAI:    openAIKey,
	})
}
