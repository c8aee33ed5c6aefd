package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Consolidator удаляет почти дубликаты в памяти всех пользователей
type Consolidator interface {
	ConsolidateAll(ctx context.Context) (int, error)
}

// MemoryConsolidator ежедневная консолидация памяти в 04:00 UTC
type MemoryConsolidator struct {
	memory Consolidator
	log    *slog.Logger
}

func NewMemoryConsolidator(memory Consolidator, log *slog.Logger) *MemoryConsolidator {
	return &MemoryConsolidator{memory: memory, log: log}
}

func (j *MemoryConsolidator) Name() string {
	return "memory-consolidator"
}

func (j *MemoryConsolidator) NextRun(now time.Time) time.Time {
	return nextDaily(now, 4, 0)
}

func (j *MemoryConsolidator) Run(ctx context.Context) error {
	removed, err := j.memory.ConsolidateAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to consolidate memories: %w", err)
	}
	j.log.Info("memories consolidated", "removed", removed)
	return nil
}
