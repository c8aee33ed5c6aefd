// Package memory долговременная память о пользователе: хранение, поиск,
// отложенное извлечение из диалога и консолидация
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/admin/astro-agent/internal/domain"
	kafkaPorts "github.com/admin/astro-agent/internal/ports/kafka"
	"github.com/admin/astro-agent/internal/ports/repository"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/ports/storage"
	"github.com/google/uuid"
)

// Deps зависимости сервиса памяти; Events и Exports могут быть nil
type Deps struct {
	Repo      repository.IMemoryRepo
	Embedder  service.IEmbedder
	Extractor Extractor
	Profiles  repository.IProfileRepo
	Usage     repository.IUsageRepo
	Events    kafkaPorts.IEventPublisher
	Exports   storage.IS3Client
}

type Service struct {
	repo      repository.IMemoryRepo
	embedder  service.IEmbedder
	extractor Extractor
	profiles  repository.IProfileRepo
	usage     repository.IUsageRepo
	events    kafkaPorts.IEventPublisher
	exports   storage.IS3Client
	debouncer *Debouncer
	cfg       *Config
	now       func() time.Time
	Log       *slog.Logger
}

func New(deps Deps, cfg *Config, log *slog.Logger) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Service{
		repo:      deps.Repo,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		profiles:  deps.Profiles,
		usage:     deps.Usage,
		events:    deps.Events,
		exports:   deps.Exports,
		debouncer: NewDebouncer(),
		cfg:       cfg,
		now:       time.Now,
		Log:       log,
	}
}

var (
	_ service.IMemoryService   = (*Service)(nil)
	_ service.IUserDataService = (*Service)(nil)
)

// Store векторизует и сохраняет память, сразу доступна для поиска
func (s *Service) Store(ctx context.Context, userID, content string, memoryType domain.MemoryType, metadata domain.Metadata) (*domain.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &domain.ParseError{Field: "memory content", Value: content}
	}
	if !memoryType.IsValid() {
		memoryType = domain.ClassifyMemoryType(content)
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.Log.Error("failed to embed memory", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to embed memory: %w", err)
	}

	m := &domain.Memory{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        memoryType,
		Content:     content,
		Metadata:    metadata,
		ExtractedAt: s.now().UTC(),
		Confidence:  1,
		Embedding:   embedding,
	}
	if m.Metadata == nil {
		m.Metadata = domain.Metadata{}
	}
	if c, ok := metadata["confidence"].(float64); ok {
		m.Confidence = c
	}
	if conv, ok := metadata["conversation_id"].(string); ok && conv != "" {
		m.SourceConversationID = &conv
	}

	if err := s.repo.Add(ctx, m); err != nil {
		s.Log.Error("failed to store memory", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}

	s.Log.Debug("memory stored", "user_id", userID, "memory_id", m.ID, "memory_type", m.Type)
	s.publish(ctx, domain.MemoryEvent{
		Type:       domain.MemoryEventStored,
		UserID:     userID,
		MemoryID:   m.ID,
		MemoryType: m.Type,
	})
	return m, nil
}

// Search ближайшие по смыслу воспоминания, только среди памяти userID
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]domain.MemorySearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.cfg.SearchLimit
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.Log.Error("failed to embed memory query", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.repo.Query(ctx, userID, embedding, limit, nil)
	if err != nil {
		s.Log.Error("failed to query memories", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	return results, nil
}

// ScheduleExtraction откладывает извлечение; более новое окно заменяет ожидающее
func (s *Service) ScheduleExtraction(userID, conversationID string, window []domain.Message, delay time.Duration) {
	if delay <= 0 {
		delay = s.cfg.extractionDelay()
	}
	snapshot := append([]domain.Message(nil), window...)
	s.debouncer.Submit(userID, delay, func(ctx context.Context) {
		s.extractAndStore(ctx, userID, conversationID, snapshot)
	})
	s.Log.Debug("memory extraction scheduled", "user_id", userID, "messages", len(snapshot), "delay", delay)
}

// FlushExtraction выполняет ожидающее извлечение немедленно
func (s *Service) FlushExtraction(ctx context.Context, userID string) bool {
	return s.debouncer.Flush(ctx, userID)
}

func (s *Service) extractAndStore(ctx context.Context, userID, conversationID string, window []domain.Message) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.extractionTimeout())
	defer cancel()

	found, err := s.extractor.Extract(ctx, window)
	if err != nil {
		s.Log.Error("failed to extract memories", "error", err, "user_id", userID)
		return
	}

	stored := 0
	for _, f := range found {
		if f.Confidence < s.cfg.MinConfidence {
			continue
		}
		meta := domain.Metadata{"source": "extraction", "confidence": f.Confidence}
		if conversationID != "" {
			meta["conversation_id"] = conversationID
		}
		if _, err := s.Store(ctx, userID, f.Content, f.Type, meta); err != nil {
			s.Log.Warn("failed to store extracted memory", "error", err, "user_id", userID)
			continue
		}
		stored++
	}
	s.Log.Info("memory extraction finished", "user_id", userID, "found", len(found), "stored", stored)
}

// Consolidate удаляет почти дубликаты: идём от новых к старым, запись с перекрытием слов
// выше порога с любой оставленной удаляется
func (s *Service) Consolidate(ctx context.Context, userID string) (int, error) {
	memories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.Log.Error("failed to list memories", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to list memories: %w", err)
	}
	if len(memories) < 2 {
		return 0, nil
	}

	threshold := s.cfg.threshold()
	var kept []map[string]struct{}
	var duplicates []string
	for _, m := range memories {
		words := wordSet(m.Content)
		if len(words) == 0 {
			continue
		}
		duplicate := false
		for _, k := range kept {
			if overlap(words, k) > threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			duplicates = append(duplicates, m.ID)
			continue
		}
		kept = append(kept, words)
	}
	if len(duplicates) == 0 {
		return 0, nil
	}

	removed, err := s.repo.Delete(ctx, userID, duplicates)
	if err != nil {
		s.Log.Error("failed to delete duplicate memories", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to delete duplicate memories: %w", err)
	}

	s.Log.Info("memories consolidated", "user_id", userID, "removed", removed)
	s.publish(ctx, domain.MemoryEvent{
		Type:    domain.MemoryEventConsolidated,
		UserID:  userID,
		Removed: removed,
	})
	return removed, nil
}

// ConsolidateAll проход по всем пользователям с памятью, ошибки пользователя не прерывают проход
func (s *Service) ConsolidateAll(ctx context.Context) (int, error) {
	users, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list memory users: %w", err)
	}
	total := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		removed, err := s.Consolidate(ctx, userID)
		if err != nil {
			continue
		}
		total += removed
	}
	return total, nil
}

func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func overlap(words, other map[string]struct{}) float64 {
	common := 0
	for w := range words {
		if _, ok := other[w]; ok {
			common++
		}
	}
	return float64(common) / float64(len(words))
}

// Stats количество памяти по типам и ожидающие извлечения
func (s *Service) Stats(ctx context.Context, userID string) (*domain.MemoryStats, error) {
	counts, err := s.repo.CountByType(ctx, userID)
	if err != nil {
		s.Log.Error("failed to count memories", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	stats := &domain.MemoryStats{
		UserID:             userID,
		ByType:             make(map[domain.MemoryType]int, len(domain.MemoryTypes)),
		PendingExtractions: s.debouncer.Pending(),
	}
	for _, t := range domain.MemoryTypes {
		stats.ByType[t] = counts[t]
		stats.Total += counts[t]
	}
	return stats, nil
}

// StoreConversationSummary эпизодическая запись о завершённой сессии с ключевыми темами
func (s *Service) StoreConversationSummary(ctx context.Context, userID, conversationID string, messages []domain.Message) error {
	count := 0
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			count++
		}
	}
	if count == 0 {
		return nil
	}

	topics := ExtractTopics(messages)
	about := "general conversation"
	if len(topics) > 0 {
		about = strings.ReplaceAll(strings.Join(topics, ", "), "_", " ")
	}
	content := fmt.Sprintf("Conversation on %s with %d messages about: %s",
		s.now().UTC().Format(domain.DateLayout), len(messages), about)

	topicList := make([]any, len(topics))
	for i, t := range topics {
		topicList[i] = t
	}
	_, err := s.Store(ctx, userID, content, domain.MemoryEpisodic, domain.Metadata{
		"source":          "conversation_summary",
		"conversation_id": conversationID,
		"message_count":   len(messages),
		"key_topics":      topicList,
	})
	return err
}

// Close останавливает отложенные извлечения и ждёт выполняющиеся
func (s *Service) Close() {
	s.debouncer.Close()
}

func (s *Service) publish(ctx context.Context, event domain.MemoryEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.PublishMemoryEvent(ctx, event); err != nil {
		s.Log.Warn("failed to publish memory event", "error", err, "type", event.Type, "user_id", event.UserID)
	}
}
