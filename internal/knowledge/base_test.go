package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	kb, err := Load("")
	require.NoError(t, err)
	require.Len(t, kb.Records, 3)

	r, ok := kb.Get(1)
	require.True(t, ok)
	assert.Equal(t, "What is the return policy?", r.Question)
	assert.Contains(t, r.Answer, "30 days")

	_, ok = kb.Get(42)
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"records":[{"id":7,"question":"Q?","answer":"A."}]}`), 0o600))

	kb, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, kb.Search("anything"), 1)
	assert.Equal(t, 7, kb.Records[0].ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)
}
