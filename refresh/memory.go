package refresh

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Expired records are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	records map[string]memoryRecord
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return NewMemoryStoreWithClock(ttl, time.Now)
}

// NewMemoryStoreWithClock is NewMemoryStore with an injectable clock.
func NewMemoryStoreWithClock(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ttl:     normalizeTTL(ttl),
		now:     now,
		records: make(map[string]memoryRecord),
	}
}

func (s *MemoryStore) Put(_ context.Context, accountID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[accountID] = memoryRecord{token: token, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.liveLocked(accountID)
	if !ok {
		return "", ErrNotFound
	}
	return rec.token, nil
}

func (s *MemoryStore) Delete(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, accountID)
	return nil
}

func (s *MemoryStore) Swap(_ context.Context, accountID, presented, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveLocked(accountID)
	if !ok {
		return ErrNotFound
	}
	if rec.token != presented {
		delete(s.records, accountID)
		return ErrMismatch
	}
	s.records[accountID] = memoryRecord{token: next, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Len reports the number of records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) liveLocked(accountID string) (memoryRecord, bool) {
	rec, ok := s.records[accountID]
	if !ok {
		return memoryRecord{}, false
	}
	if !s.now().Before(rec.expiresAt) {
		delete(s.records, accountID)
		return memoryRecord{}, false
	}
	return rec, true
}
