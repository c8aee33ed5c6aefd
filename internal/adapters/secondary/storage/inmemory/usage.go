package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/repository"
)

// UsageStore журнал расходов в памяти
type UsageStore struct {
	mu      sync.Mutex
	records []domain.UsageRecord
}

func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

var _ repository.IUsageRepo = (*UsageStore)(nil)

func (s *UsageStore) Add(_ context.Context, record *domain.UsageRecord) error {
	s.mu.Lock()
	s.records = append(s.records, *record)
	s.mu.Unlock()
	return nil
}

func (s *UsageStore) CostSince(_ context.Context, userID string, since time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, r := range s.records {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			total += r.CostUSD
		}
	}
	return total, nil
}

func (s *UsageStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0:0]
	for _, r := range s.records {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}
