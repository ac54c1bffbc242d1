package agent

import (
	"sync"
	"time"

	"github.com/nelssec/llm-workflows/internal/routing"
)

// Conversation is one client session: its chat history and the routed
// assistant state collected so far, keyed by domain ("calendar", "goals").
type Conversation struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	states map[string]*routing.State
}

type ConversationStore struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*Conversation),
	}
}

// Open returns the conversation with id, creating it when unknown.
func (s *ConversationStore) Open(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[id]; ok {
		return conv
	}

	now := time.Now()
	conv := &Conversation{
		ID:        id,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
		states:    make(map[string]*routing.State),
	}
	s.conversations[id] = conv
	return conv
}

func (s *ConversationStore) Get(id string) *Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.conversations[id]
}

// History returns a copy of the conversation's messages.
func (s *ConversationStore) History(id string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}
	return append([]Message(nil), conv.Messages...)
}

func (s *ConversationStore) Update(id string, messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[id]; ok {
		conv.Messages = messages
		conv.UpdatedAt = time.Now()
	}
}

// State returns the assistant state for domain within conversation id,
// creating both when missing. States live as long as the conversation.
func (s *ConversationStore) State(id, domain string) *routing.State {
	conv := s.Open(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := conv.states[domain]
	if !ok {
		st = routing.NewState()
		conv.states[domain] = st
	}
	conv.UpdatedAt = time.Now()
	return st
}

// Snapshot copies the state for domain without creating it.
func (s *ConversationStore) Snapshot(id, domain string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	st, ok := conv.states[domain]
	if !ok {
		return map[string]string{}, true
	}
	return st.Snapshot(), true
}

func (s *ConversationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
}

func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations)
}

// Cleanup drops conversations idle for longer than maxAge and reports how
// many were removed.
func (s *ConversationStore) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, conv := range s.conversations {
		if conv.UpdatedAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}
