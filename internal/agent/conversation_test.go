package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStore(t *testing.T) {
	s := NewConversationStore()

	conv := s.Open("c1")
	require.NotNil(t, conv)
	assert.Same(t, conv, s.Open("c1"))
	assert.Equal(t, 1, s.Len())

	s.Update("c1", []Message{{Role: "user", Content: "hi"}})
	history := s.History("c1")
	require.Len(t, history, 1)

	history[0].Content = "changed"
	assert.Equal(t, "hi", s.History("c1")[0].Content)

	assert.Nil(t, s.History("missing"))
	s.Update("missing", []Message{{Role: "user"}})
	assert.Nil(t, s.Get("missing"))
}

func TestConversationState(t *testing.T) {
	s := NewConversationStore()

	_, ok := s.Snapshot("c1", "calendar")
	assert.False(t, ok)

	st := s.State("c1", "calendar")
	st.Set("name", "Standup")
	assert.Same(t, st, s.State("c1", "calendar"))

	snap, ok := s.Snapshot("c1", "calendar")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"name": "Standup"}, snap)

	snap, ok = s.Snapshot("c1", "goals")
	require.True(t, ok)
	assert.Empty(t, snap)
}

func TestConversationCleanup(t *testing.T) {
	s := NewConversationStore()
	s.Open("old")
	s.Open("new")

	s.mu.Lock()
	s.conversations["old"].UpdatedAt = time.Now().Add(-48 * time.Hour)
	s.mu.Unlock()

	assert.Equal(t, 1, s.Cleanup(24*time.Hour))
	assert.Nil(t, s.Get("old"))
	assert.NotNil(t, s.Get("new"))

	s.Delete("new")
	assert.Zero(t, s.Len())
}
