package service

import (
	"context"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

// ChartRequest параметры расчёта карты на момент времени и место
type ChartRequest struct {
	Date      time.Time
	Time      domain.ClockTime
	Latitude  float64
	Longitude float64
	Timezone  string
}

// IChartEngine внешний движок эфемерид
type IChartEngine interface {
	NatalChart(ctx context.Context, req ChartRequest) (*domain.ChartData, error)
	Transits(ctx context.Context, natal *domain.ChartData, at ChartRequest) (*domain.TransitData, error)
	Synastry(ctx context.Context, natal *domain.ChartData, partner ChartRequest) ([]domain.Aspect, error)
	// Positions положения планет на момент времени, без домов
	Positions(ctx context.Context, at time.Time) ([]domain.PlanetPlacement, error)
}

// IChartService расчёты поверх движка, которые используют инструменты агента
type IChartService interface {
	ComputeNatal(ctx context.Context, birth *domain.BirthData) (*domain.ChartData, error)
	Transits(ctx context.Context, natal *domain.ChartData, date time.Time, loc *domain.Location) (*domain.TransitData, error)
	Synastry(ctx context.Context, natal *domain.ChartData, partner domain.PartnerBirth) (*domain.SynastryData, error)
	MoonPhase(ctx context.Context, date time.Time) (*domain.MoonPhase, error)
	Retrogrades(ctx context.Context, date time.Time, natal *domain.ChartData) (*domain.RetrogradeReport, error)
	SolarReturn(ctx context.Context, birth *domain.BirthData, year int) (*domain.SolarReturn, error)
	Dignities(natal *domain.ChartData) domain.DignityReport
	AspectPatterns(natal *domain.ChartData) domain.AspectPatternReport
}
