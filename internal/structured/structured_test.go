package structured

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/llm/llmtest"
)

type sample struct {
	Kind       string   `json:"kind" jsonschema:"description=Kind of thing"`
	Confidence float64  `json:"confidence" validate:"gte=0,lte=1"`
	Tags       []string `json:"tags"`
}

func schemaMap(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestSchemaFor(t *testing.T) {
	raw, err := SchemaFor[sample]()
	require.NoError(t, err)

	m := schemaMap(t, raw)
	assert.Equal(t, "object", m["type"])
	assert.NotContains(t, m, "$ref")
	assert.NotContains(t, m, "$schema")

	props := m["properties"].(map[string]interface{})
	assert.Contains(t, props, "kind")
	assert.Contains(t, props, "confidence")
	assert.Contains(t, props, "tags")

	kind := props["kind"].(map[string]interface{})
	assert.Equal(t, "Kind of thing", kind["description"])
	assert.ElementsMatch(t, []interface{}{"kind", "confidence", "tags"}, m["required"])
}

func TestSchemaWithEnum(t *testing.T) {
	raw, err := SchemaWithEnum[sample]("kind", []string{"a", "b", "other"})
	require.NoError(t, err)

	props := schemaMap(t, raw)["properties"].(map[string]interface{})
	kind := props["kind"].(map[string]interface{})
	assert.Equal(t, []interface{}{"a", "b", "other"}, kind["enum"])

	_, err = SchemaWithEnum[sample]("missing", []string{"x"})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		out, err := Decode[sample](`{"kind":"a","confidence":0.9,"tags":["x"]}`)
		require.NoError(t, err)
		assert.Equal(t, "a", out.Kind)
		assert.InDelta(t, 0.9, out.Confidence, 1e-9)
		assert.Equal(t, []string{"x"}, out.Tags)
	})

	t.Run("fenced json", func(t *testing.T) {
		out, err := Decode[sample]("```json\n{\"kind\":\"b\",\"confidence\":0.5}\n```")
		require.NoError(t, err)
		assert.Equal(t, "b", out.Kind)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Decode[sample]("I think it is a meeting")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOutput))
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Decode[sample](`{"kind":"a","confidence":1.5}`)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidOutput))
	})

	t.Run("non struct", func(t *testing.T) {
		out, err := Decode[map[string]string](`{"a":"b"}`)
		require.NoError(t, err)
		assert.Equal(t, "b", (*out)["a"])
	})
}

func TestGenerate(t *testing.T) {
	client := llmtest.New().ReplyJSON(sample{Kind: "a", Confidence: 0.8})

	out, err := Generate[sample](context.Background(), client, &llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "a", out.Kind)

	require.Len(t, client.Requests, 1)
	assert.NotEmpty(t, client.Requests[0].Format, "schema derived from the target type")
}

func TestGenerateClientError(t *testing.T) {
	client := llmtest.New().Fail(errors.New("boom"))

	_, err := Generate[sample](context.Background(), client, &llm.Request{Messages: []llm.Message{llm.UserMessage("hi")}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidOutput))
}
