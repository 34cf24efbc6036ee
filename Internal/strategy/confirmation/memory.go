package confirmation

import (
	"context"
	"sync"

	"github.com/fazecat/signalmaker/Internal/types"
)

// MemoryStore keeps pending confirmations in process memory. It is the
// store used in tests and demo runs; live runs use the database-backed
// store so state survives restarts.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]types.PendingConfirmation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]types.PendingConfirmation)}
}

func (s *MemoryStore) Get(_ context.Context, symbol string) (*types.PendingConfirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[symbol]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) Put(_ context.Context, p *types.PendingConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.Symbol] = *p
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, symbol)
	return nil
}

func (s *MemoryStore) All(_ context.Context) ([]types.PendingConfirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PendingConfirmation, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	return out, nil
}
