package chart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	natalReqs      []service.ChartRequest
	synastryReqs   []service.ChartRequest
	positionsCalls int
	transitsCalls  int
	positions      []domain.PlanetPlacement
	aspects        []domain.Aspect
	err            error
}

func (f *fakeEngine) NatalChart(_ context.Context, req service.ChartRequest) (*domain.ChartData, error) {
	f.natalReqs = append(f.natalReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChartData{Planets: []domain.PlanetPlacement{
		{Name: "Sun", Sign: "Gemini", House: 10},
		{Name: "Moon", Sign: "Scorpio", House: 3},
	}, Ascendant: &domain.Angle{Sign: "Virgo"}}, nil
}

func (f *fakeEngine) Transits(_ context.Context, _ *domain.ChartData, at service.ChartRequest) (*domain.TransitData, error) {
	f.transitsCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &domain.TransitData{Date: at.Date, Aspects: f.aspects}, nil
}

func (f *fakeEngine) Synastry(_ context.Context, _ *domain.ChartData, partner service.ChartRequest) ([]domain.Aspect, error) {
	f.synastryReqs = append(f.synastryReqs, partner)
	return f.aspects, f.err
}

func (f *fakeEngine) Positions(_ context.Context, _ time.Time) ([]domain.PlanetPlacement, error) {
	f.positionsCalls++
	return f.positions, f.err
}

func newService(engine *fakeEngine) *Service {
	return New(engine, inmemory.NewCache(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestComputeNatal_UnknownTimeUsesNoon(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(engine)
	date := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	chart, err := svc.ComputeNatal(context.Background(), &domain.BirthData{
		Date:        &date,
		TimeUnknown: true,
		Location:    &domain.Location{City: "NYC", Latitude: 40.7, Longitude: -74},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, chart.Planets)
	require.Len(t, engine.natalReqs, 1)
	assert.Equal(t, domain.Noon, engine.natalReqs[0].Time)
	assert.Equal(t, "UTC", engine.natalReqs[0].Timezone)
}

func TestComputeNatal_NotReady(t *testing.T) {
	svc := newService(&fakeEngine{})
	_, err := svc.ComputeNatal(context.Background(), &domain.BirthData{})
	assert.ErrorIs(t, err, domain.ErrChartNotReady)
}

func TestTransits_SignificantAndCached(t *testing.T) {
	engine := &fakeEngine{aspects: []domain.Aspect{
		{Planet1: "Saturn", Planet2: "Sun", Type: domain.AspectSquare},
		{Planet1: "Venus", Planet2: "Moon", Type: domain.AspectQuincunx},
		{Planet1: "Jupiter", Planet2: "Venus", Type: domain.AspectTrine},
		{Planet1: "Mars", Planet2: "Mars", Type: domain.AspectConjunction},
		{Planet1: "Mercury", Planet2: "Sun", Type: domain.AspectSextile},
		{Planet1: "Pluto", Planet2: "Moon", Type: domain.AspectOpposition},
		{Planet1: "Uranus", Planet2: "Moon", Type: domain.AspectTrine},
	}}
	svc := newService(engine)
	natal := &domain.ChartData{Planets: []domain.PlanetPlacement{{Name: "Sun", Sign: "Gemini"}}}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tr, err := svc.Transits(context.Background(), natal, date, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Saturn square Sun",
		"Jupiter trine Venus",
		"Mars conjunction Mars",
		"Mercury sextile Sun",
		"Pluto opposition Moon",
	}, tr.SignificantTransits)

	_, err = svc.Transits(context.Background(), natal, date, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.transitsCalls)
}

func TestTransitsKey_CoversHousesAndAngles(t *testing.T) {
	planets := []domain.PlanetPlacement{{Name: "Sun", Sign: "Gemini", House: 10}}
	req := service.ChartRequest{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Timezone: "UTC"}

	base := &domain.ChartData{
		Planets:   planets,
		Houses:    []domain.HouseCusp{{House: 1, Sign: "Virgo", Degree: 12.5}},
		Ascendant: &domain.Angle{Sign: "Virgo", Degree: 12.5},
		Midheaven: &domain.Angle{Sign: "Gemini", Degree: 8},
	}
	otherHouses := &domain.ChartData{
		Planets:   planets,
		Houses:    []domain.HouseCusp{{House: 1, Sign: "Libra", Degree: 3}},
		Ascendant: base.Ascendant,
		Midheaven: base.Midheaven,
	}
	otherAscendant := &domain.ChartData{
		Planets:   planets,
		Houses:    base.Houses,
		Ascendant: &domain.Angle{Sign: "Libra", Degree: 3},
		Midheaven: base.Midheaven,
	}
	otherMidheaven := &domain.ChartData{
		Planets:   planets,
		Houses:    base.Houses,
		Ascendant: base.Ascendant,
		Midheaven: &domain.Angle{Sign: "Cancer", Degree: 1},
	}

	key := transitsKey(base, req)
	assert.Equal(t, key, transitsKey(base.Clone(), req))
	assert.NotEqual(t, key, transitsKey(otherHouses, req))
	assert.NotEqual(t, key, transitsKey(otherAscendant, req))
	assert.NotEqual(t, key, transitsKey(otherMidheaven, req))
}

func TestTransits_CacheSeparatesChartsWithDifferentHouses(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(engine)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	planets := []domain.PlanetPlacement{{Name: "Sun", Sign: "Gemini", House: 10}}

	first := &domain.ChartData{Planets: planets, Ascendant: &domain.Angle{Sign: "Virgo"}}
	second := &domain.ChartData{Planets: planets, Ascendant: &domain.Angle{Sign: "Aries"}}

	_, err := svc.Transits(context.Background(), first, date, nil)
	require.NoError(t, err)
	_, err = svc.Transits(context.Background(), second, date, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, engine.transitsCalls)
}

func TestSynastry_ApproximateDefault(t *testing.T) {
	engine := &fakeEngine{aspects: []domain.Aspect{
		{Planet1: "Sun", Planet2: "Moon", Type: domain.AspectTrine},
		{Planet1: "Venus", Planet2: "Mars", Type: domain.AspectSquare},
	}}
	svc := newService(engine)
	natal := &domain.ChartData{Planets: []domain.PlanetPlacement{{Name: "Sun"}}}

	res, err := svc.Synastry(context.Background(), natal, domain.PartnerBirth{
		Date:        time.Date(1992, 1, 2, 0, 0, 0, 0, time.UTC),
		Approximate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, res.CompatibilityScore)
	assert.True(t, res.Approximate)
	assert.NotEmpty(t, res.ApproximationNote)
	assert.Equal(t, []string{"Sun-Moon trine"}, res.Strengths)
	assert.Equal(t, []string{"Venus-Mars square"}, res.Challenges)
	require.Len(t, engine.synastryReqs, 1)
	assert.Equal(t, 0.0, engine.synastryReqs[0].Latitude)
	assert.Equal(t, domain.Noon, engine.synastryReqs[0].Time)
}

func TestMoonPhase_UsesCachedPositions(t *testing.T) {
	engine := &fakeEngine{positions: []domain.PlanetPlacement{
		{Name: "Sun", Sign: "Aries", Degree: 10},
		{Name: "Moon", Sign: "Libra", Degree: 12},
	}}
	svc := newService(engine)
	date := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	phase, err := svc.MoonPhase(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, "Full Moon", phase.Name)
	assert.InDelta(t, 182.0, phase.Angle, 1e-9)
	assert.InDelta(t, 1.0, phase.Illumination, 0.01)

	_, err = svc.Retrogrades(context.Background(), date, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.positionsCalls)
}

func TestEngineErrorWrapped(t *testing.T) {
	svc := newService(&fakeEngine{err: errors.New("boom")})
	_, err := svc.MoonPhase(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSolarReturn(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(engine)
	date := time.Date(1992, 2, 29, 0, 0, 0, 0, time.UTC)

	sr, err := svc.SolarReturn(context.Background(), &domain.BirthData{
		Date:     &date,
		Location: &domain.Location{Latitude: 1, Longitude: 2, Timezone: "Europe/London"},
	}, 2025)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), engine.natalReqs[0].Date)
	assert.Equal(t, domain.Noon, engine.natalReqs[0].Time)
	assert.Equal(t, 10, sr.SunHouse)
	assert.Equal(t, []string{
		"Year focuses on career, public image, and life direction (Sun in house 10)",
		"Emotional tone: Scorpio energy",
	}, sr.Themes)
	assert.Equal(t, "Virgo", sr.Ascendant)
}
