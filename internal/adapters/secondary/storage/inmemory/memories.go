package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/pkg/vector"
	"github.com/admin/astro-agent/internal/ports/repository"
)

// MemoryStore память пользователей в процессе, поиск перебором
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Memory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]domain.Memory)}
}

var _ repository.IMemoryRepo = (*MemoryStore)(nil)

func (s *MemoryStore) Add(_ context.Context, memory *domain.Memory) error {
	m := *memory
	m.Embedding = append([]float32(nil), memory.Embedding...)
	m.Metadata = copyMetadata(memory.Metadata)
	s.mu.Lock()
	s.byUser[m.UserID] = append(s.byUser[m.UserID], m)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Query(_ context.Context, userID string, embedding []float32, limit int, memoryType *domain.MemoryType) ([]domain.MemorySearchResult, error) {
	s.mu.RLock()
	rows := s.byUser[userID]
	candidates := make([]domain.Memory, 0, len(rows))
	for _, m := range rows {
		if memoryType != nil && m.Type != *memoryType {
			continue
		}
		candidates = append(candidates, m)
	}
	s.mu.RUnlock()

	vectors := make([][]float32, len(candidates))
	for i, m := range candidates {
		vectors[i] = m.Embedding
	}

	scored := vector.TopK(embedding, vectors, limit)
	out := make([]domain.MemorySearchResult, 0, len(scored))
	for _, sc := range scored {
		m := candidates[sc.Index]
		m.Embedding = nil
		out = append(out, domain.MemorySearchResult{
			Memory:    m,
			Distance:  sc.Distance,
			Relevance: domain.RelevanceFromDistance(sc.Distance),
		})
	}
	return out, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]domain.Memory, error) {
	s.mu.RLock()
	out := append([]domain.Memory(nil), s.byUser[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ExtractedAt.After(out[j].ExtractedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.byUser[userID]
	kept := rows[:0:0]
	removed := 0
	for _, m := range rows {
		if _, ok := drop[m.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	s.byUser[userID] = kept
	return removed, nil
}

func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.byUser[userID])
	delete(s.byUser, userID)
	return n, nil
}

func (s *MemoryStore) CountByType(_ context.Context, userID string) (map[domain.MemoryType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.MemoryType]int)
	for _, m := range s.byUser[userID] {
		out[m.Type]++
	}
	return out, nil
}

func (s *MemoryStore) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byUser))
	for id, rows := range s.byUser {
		if len(rows) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func copyMetadata(in domain.Metadata) domain.Metadata {
	if in == nil {
		return nil
	}
	out := make(domain.Metadata, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
