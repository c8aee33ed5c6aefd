package inmemory

import (
	"context"
	"sync"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/repository"
)

// ProfileStore профили в памяти процесса, хранит копии
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*domain.UserProfile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]*domain.UserProfile)}
}

var _ repository.IProfileRepo = (*ProfileStore)(nil)

func (s *ProfileStore) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (s *ProfileStore) Create(_ context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return nil
	}
	s.profiles[profile.ID] = profile.Clone()
	return nil
}

func (s *ProfileStore) Save(_ context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	s.profiles[profile.ID] = profile.Clone()
	return nil
}

func (s *ProfileStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}
