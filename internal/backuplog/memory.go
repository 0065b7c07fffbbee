package backuplog

import (
	"context"
	"sync"
)

// memoryStore is a fixed-capacity ring. State is lost on restart and not
// shared between instances.
type memoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func newMemoryStore(capacity int) *memoryStore {
	return &memoryStore{entries: make([]Entry, capacity)}
}

func (s *memoryStore) Push(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *memoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.next
	if s.full {
		size = len(s.entries)
	}
	limit = clampLimit(limit, len(s.entries))
	if limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}
