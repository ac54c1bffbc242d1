package routing

import (
	"sort"
	"sync"
)

// State is the key/value memory handlers write into. Keys are overwritten
// but never removed.
type State struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewState() *State {
	return &State{values: make(map[string]string)}
}

func (s *State) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Merge writes every non-empty key of fields and returns the keys written.
func (s *State) Merge(fields map[string]string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == "" {
			continue
		}
		s.values[k] = v
		written = append(written, k)
	}
	sort.Strings(written)
	return written
}

func (s *State) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Snapshot returns a copy safe to hand out.
func (s *State) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
