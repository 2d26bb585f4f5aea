package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/pf-nexus/papermark/internal/port"
)

// MemoryStore is a single-process HandoffStore used when Redis is not
// configured. It only prevents replay against the same replica.
type MemoryStore struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{used: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.used {
		if !now.Before(exp) {
			delete(s.used, k)
		}
	}
	if _, seen := s.used[id]; seen {
		return false, nil
	}
	s.used[id] = now.Add(ttl)
	return true, nil
}

var _ port.HandoffStore = (*MemoryStore)(nil)
