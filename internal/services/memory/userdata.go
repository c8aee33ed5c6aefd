package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/admin/astro-agent/internal/domain"
)

// Export выгружает профиль и память в объектное хранилище и возвращает временную ссылку
func (s *Service) Export(ctx context.Context, userID string) (string, error) {
	if s.exports == nil {
		return "", domain.ErrExportDisabled
	}

	snapshot, err := s.snapshot(ctx, userID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}

	key := path.Join(s.cfg.ExportPrefix, userID, snapshot.ExportedAt.Format("20060102T150405Z")+".json")
	if err := s.exports.PutFile(ctx, key, data, "application/json"); err != nil {
		s.Log.Error("failed to upload export", "error", err, "user_id", userID)
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	url, err := s.exports.GetPresignedURL(ctx, key, s.cfg.linkTTL())
	if err != nil {
		s.Log.Error("failed to presign export", "error", err, "user_id", userID)
		return "", fmt.Errorf("failed to presign export: %w", err)
	}

	s.Log.Info("user data exported", "user_id", userID, "memories", len(snapshot.Memories), "key", key)
	return url, nil
}

func (s *Service) snapshot(ctx context.Context, userID string) (*domain.UserExport, error) {
	out := &domain.UserExport{ExportedAt: s.now().UTC(), Memories: []domain.Memory{}}
	if s.profiles != nil {
		p, err := s.profiles.Get(ctx, userID)
		switch {
		case err == nil:
			out.Profile = p
		case !errors.Is(err, domain.ErrProfileNotFound):
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
	}

	memories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	for _, m := range memories {
		m.Embedding = nil
		out.Memories = append(out.Memories, m)
	}
	return out, nil
}

// Erase удаляет все данные пользователя. Ожидающее извлечение отменяется,
// уже запущенное успевает завершиться до удаления
func (s *Service) Erase(ctx context.Context, userID string) error {
	s.debouncer.Cancel(userID)
	if err := s.debouncer.Wait(ctx, userID); err != nil {
		s.Log.Error("failed to wait for running extraction", "error", err, "user_id", userID)
		return fmt.Errorf("failed to wait for running extraction: %w", err)
	}

	removed, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		s.Log.Error("failed to erase memories", "error", err, "user_id", userID)
		return fmt.Errorf("failed to erase memories: %w", err)
	}
	if s.profiles != nil {
		if err := s.profiles.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
			s.Log.Error("failed to erase profile", "error", err, "user_id", userID)
			return fmt.Errorf("failed to erase profile: %w", err)
		}
	}
	if s.usage != nil {
		if err := s.usage.DeleteAllForUser(ctx, userID); err != nil {
			s.Log.Error("failed to erase usage", "error", err, "user_id", userID)
			return fmt.Errorf("failed to erase usage: %w", err)
		}
	}

	s.Log.Info("user data erased", "user_id", userID, "memories", removed)
	s.publish(ctx, domain.MemoryEvent{
		Type:    domain.MemoryEventErased,
		UserID:  userID,
		Removed: removed,
	})
	return nil
}
