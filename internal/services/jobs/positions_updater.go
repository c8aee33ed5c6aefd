package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

// PositionsSource положения планет на дату, результат кешируется
type PositionsSource interface {
	Positions(ctx context.Context, date time.Time) ([]domain.PlanetPlacement, error)
}

// PositionsUpdater прогревает кеш положений планет на сегодня и завтра, каждый день в 00:05 UTC.
// Фаза Луны и ретрограды считаются из этих же положений
type PositionsUpdater struct {
	source PositionsSource
	now    func() time.Time
	log    *slog.Logger
}

func NewPositionsUpdater(source PositionsSource, log *slog.Logger) *PositionsUpdater {
	return &PositionsUpdater{source: source, now: time.Now, log: log}
}

func (j *PositionsUpdater) Name() string {
	return "positions-updater"
}

func (j *PositionsUpdater) NextRun(now time.Time) time.Time {
	return nextDaily(now, 0, 5)
}

func (j *PositionsUpdater) Run(ctx context.Context) error {
	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, date := range []time.Time{today, today.AddDate(0, 0, 1)} {
		positions, err := j.source.Positions(ctx, date)
		if err != nil {
			return fmt.Errorf("failed to warm positions for %s: %w", date.Format("2006-01-02"), err)
		}
		j.log.Debug("positions warmed", "date", date.Format("2006-01-02"), "planets", len(positions))
	}
	return nil
}
