package chart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/cache"
	"github.com/admin/astro-agent/internal/ports/service"
)

const (
	positionsTTL = 24 * time.Hour
	transitsTTL  = 6 * time.Hour

	ApproximateLocationNote = "Partner birth location unknown: houses and angles are approximate (0,0 coordinates were used). Share the partner's birth city for a precise reading."
)

// Service расчёты для инструментов агента поверх движка эфемерид
type Service struct {
	engine service.IChartEngine
	cache  cache.Cache
	Log    *slog.Logger
	now    func() time.Time
}

// New создаёт сервис карт, cache может быть nil
func New(engine service.IChartEngine, c cache.Cache, log *slog.Logger) *Service {
	return &Service{
		engine: engine,
		cache:  c,
		Log:    log,
		now:    time.Now,
	}
}

var _ service.IChartService = (*Service)(nil)

// ComputeNatal считает натальную карту, без времени рождения берётся полдень
func (s *Service) ComputeNatal(ctx context.Context, birth *domain.BirthData) (*domain.ChartData, error) {
	if birth == nil || birth.Date == nil || birth.Location == nil {
		return nil, domain.ErrChartNotReady
	}
	chart, err := s.engine.NatalChart(ctx, service.ChartRequest{
		Date:      *birth.Date,
		Time:      birth.ChartTime(),
		Latitude:  birth.Location.Latitude,
		Longitude: birth.Location.Longitude,
		Timezone:  timezoneOrUTC(birth.Location.Timezone),
	})
	if err != nil {
		s.Log.Error("failed to compute natal chart", "error", err, "city", birth.Location.City)
		return nil, fmt.Errorf("failed to compute natal chart: %w", err)
	}
	return chart, nil
}

// Transits транзиты к натальной карте на дату в полдень по месту пользователя
func (s *Service) Transits(ctx context.Context, natal *domain.ChartData, date time.Time, loc *domain.Location) (*domain.TransitData, error) {
	if natal == nil {
		return nil, domain.ErrChartNotReady
	}
	req := service.ChartRequest{Date: date, Time: domain.Noon, Timezone: "UTC"}
	if loc != nil {
		req.Latitude = loc.Latitude
		req.Longitude = loc.Longitude
		req.Timezone = timezoneOrUTC(loc.Timezone)
	}

	key := transitsKey(natal, req)
	var data domain.TransitData
	if s.getCached(ctx, key, &data) {
		return &data, nil
	}

	result, err := s.engine.Transits(ctx, natal, req)
	if err != nil {
		s.Log.Error("failed to compute transits", "error", err, "date", date.Format(domain.DateLayout))
		return nil, fmt.Errorf("failed to compute transits: %w", err)
	}
	result.Date = date
	result.SignificantTransits = SignificantTransits(result.Aspects)
	s.setCached(ctx, key, result, transitsTTL)
	return result, nil
}

// Synastry совместимость с партнёром
func (s *Service) Synastry(ctx context.Context, natal *domain.ChartData, partner domain.PartnerBirth) (*domain.SynastryData, error) {
	if natal == nil {
		return nil, domain.ErrChartNotReady
	}
	clock := domain.Noon
	if partner.Time != nil {
		clock = *partner.Time
	}
	aspects, err := s.engine.Synastry(ctx, natal, service.ChartRequest{
		Date:      partner.Date,
		Time:      clock,
		Latitude:  partner.Latitude,
		Longitude: partner.Longitude,
		Timezone:  timezoneOrUTC(partner.Timezone),
	})
	if err != nil {
		s.Log.Error("failed to compute synastry", "error", err)
		return nil, fmt.Errorf("failed to compute synastry: %w", err)
	}

	out := &domain.SynastryData{
		Aspects:            aspects,
		CompatibilityScore: CompatibilityScore(aspects),
		Strengths:          Strengths(aspects),
		Challenges:         Challenges(aspects),
		Approximate:        partner.Approximate,
	}
	if partner.Approximate {
		out.ApproximationNote = ApproximateLocationNote
	}
	return out, nil
}

// MoonPhase фаза Луны на дату
func (s *Service) MoonPhase(ctx context.Context, date time.Time) (*domain.MoonPhase, error) {
	positions, err := s.Positions(ctx, date)
	if err != nil {
		return nil, err
	}
	return MoonPhaseFromPositions(date, positions)
}

// Retrogrades ретроградные планеты на дату, с натальными домами если карта есть
func (s *Service) Retrogrades(ctx context.Context, date time.Time, natal *domain.ChartData) (*domain.RetrogradeReport, error) {
	positions, err := s.Positions(ctx, date)
	if err != nil {
		return nil, err
	}
	return RetrogradesFromPositions(date, positions, natal), nil
}

// SolarReturn карта на день рождения в выбранном году, полдень в месте рождения
func (s *Service) SolarReturn(ctx context.Context, birth *domain.BirthData, year int) (*domain.SolarReturn, error) {
	if birth == nil || birth.Date == nil || birth.Location == nil {
		return nil, domain.ErrChartNotReady
	}
	date := SolarReturnDate(*birth.Date, year)
	chart, err := s.engine.NatalChart(ctx, service.ChartRequest{
		Date:      date,
		Time:      domain.Noon,
		Latitude:  birth.Location.Latitude,
		Longitude: birth.Location.Longitude,
		Timezone:  timezoneOrUTC(birth.Location.Timezone),
	})
	if err != nil {
		s.Log.Error("failed to compute solar return", "error", err, "year", year)
		return nil, fmt.Errorf("failed to compute solar return: %w", err)
	}
	return BuildSolarReturn(year, date, chart), nil
}

func (s *Service) Dignities(natal *domain.ChartData) domain.DignityReport {
	return Dignities(natal)
}

func (s *Service) AspectPatterns(natal *domain.ChartData) domain.AspectPatternReport {
	return AspectPatterns(natal)
}

// Positions положения планет в полдень UTC даты, кэшируются на сутки
func (s *Service) Positions(ctx context.Context, date time.Time) ([]domain.PlanetPlacement, error) {
	at := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, time.UTC)
	key := "positions:" + at.Format(domain.DateLayout)

	var cached []domain.PlanetPlacement
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	positions, err := s.engine.Positions(ctx, at)
	if err != nil {
		s.Log.Error("failed to get planet positions", "error", err, "date", at.Format(domain.DateLayout))
		return nil, fmt.Errorf("failed to get planet positions: %w", err)
	}
	s.setCached(ctx, key, positions, positionsTTL)
	return positions, nil
}

func (s *Service) getCached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			s.Log.Warn("chart cache read failed", "error", err, "key", key)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		s.Log.Warn("chart cache entry is corrupt", "error", err, "key", key)
		return false
	}
	return true
}

func (s *Service) setCached(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), ttl); err != nil {
		s.Log.Warn("chart cache write failed", "error", err, "key", key)
	}
}

// transitsKey ключ кэша транзитов: всё, что движок берёт из натальной карты, плюс дата и место
func transitsKey(natal *domain.ChartData, req service.ChartRequest) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(struct {
		Planets     []domain.PlanetPlacement
		Houses      []domain.HouseCusp
		Ascendant   *domain.Angle
		Midheaven   *domain.Angle
		HouseSystem string
		ZodiacType  string
	}{natal.Planets, natal.Houses, natal.Ascendant, natal.Midheaven, natal.HouseSystem, natal.ZodiacType})
	fmt.Fprintf(h, "%s|%.4f|%.4f|%s", req.Date.Format(domain.DateLayout), req.Latitude, req.Longitude, req.Timezone)
	return "transits:" + hex.EncodeToString(h.Sum(nil))[:32]
}

func timezoneOrUTC(tz string) string {
	if tz == "" {
		return "UTC"
	}
	return tz
}
