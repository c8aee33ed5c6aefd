package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/usecases/profile"
)

// ProfileUpdater изменение полей профиля из диалога
type ProfileUpdater interface {
	UpdateField(ctx context.Context, userID string, field profile.Field, value string, needsGeocoding bool) (*profile.UpdateResult, error)
}

// MemoryStore часть сервиса памяти, которая нужна инструментам
type MemoryStore interface {
	Store(ctx context.Context, userID, content string, memoryType domain.MemoryType, metadata domain.Metadata) (*domain.Memory, error)
	Search(ctx context.Context, userID, query string, limit int) ([]domain.MemorySearchResult, error)
}

// Deps зависимости стандартного набора инструментов
type Deps struct {
	Profiles ProfileUpdater
	Charts   service.IChartService
	Memory   MemoryStore
	Geocoder service.IGeocoder
}

// NewDefault реестр со всеми инструментами агента
func NewDefault(deps Deps, timeout time.Duration, log *slog.Logger) (*Registry, error) {
	r := NewRegistry(timeout, log)
	all := []*Tool{
		currentTransitsTool(deps),
		synastryTool(deps),
		searchChartTool(),
		updateProfileTool(deps),
		storeMemoryTool(deps),
		searchMemoriesTool(deps),
		onboardingStatusTool(),
		moonPhaseTool(deps),
		retrogradesTool(deps),
		solarReturnTool(deps),
		dignitiesTool(deps),
		aspectPatternsTool(deps),
		natalSummaryTool(),
	}
	for _, t := range all {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var dateParam = Param{
	Name:        "date",
	Type:        TypeString,
	Description: "Target date in YYYY-MM-DD format. If not provided, uses today.",
}

// dateArg дата из аргумента или сегодняшняя дата хода
func dateArg(tc *TurnContext, args Args) (time.Time, error) {
	raw := args.String("date")
	if raw == "" {
		return tc.Today(), nil
	}
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, &domain.ParseError{Field: "date", Value: raw}
	}
	return d, nil
}
