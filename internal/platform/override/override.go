package override

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rota/rota/pkg/calendar"
)

// Store records explicit scheduler approvals for placements that overlap
// a provider's PTO or leave. Hard availability blocks are never
// overridable and are not consulted here. A grant is scoped to one
// provider, date, and time block, and expires after the configured TTL so
// stale approvals do not linger across planning sessions.
type Store interface {
	Grant(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock, grantedBy string) error
	Allowed(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) (bool, error)
	Revoke(ctx context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) error
}

func key(providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) string {
	return fmt.Sprintf("override:%s:%s:%s", providerID, date, block)
}

// MemoryStore is an in-process Store. Suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	grantedBy string
	expires   time.Time
}

// NewMemoryStore creates a memory-backed store. A ttl of zero means grants
// never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Grant(_ context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock, grantedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{grantedBy: grantedBy}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.entries[key(providerID, date, block)] = e
	return nil
}

func (s *MemoryStore) Allowed(_ context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(providerID, date, block)
	e, ok := s.entries[k]
	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.entries, k)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Revoke(_ context.Context, providerID uuid.UUID, date calendar.Date, block calendar.TimeBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key(providerID, date, block))
	return nil
}
