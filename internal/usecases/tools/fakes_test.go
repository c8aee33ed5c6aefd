package tools

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/services/chart"
	"github.com/admin/astro-agent/internal/usecases/profile"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEngine struct {
	mu           sync.Mutex
	synastryReqs []service.ChartRequest
	transitReqs  []service.ChartRequest
	aspects      []domain.Aspect
	positions    []domain.PlanetPlacement
}

func (f *fakeEngine) NatalChart(_ context.Context, _ service.ChartRequest) (*domain.ChartData, error) {
	return testChart(), nil
}

func (f *fakeEngine) Transits(_ context.Context, _ *domain.ChartData, at service.ChartRequest) (*domain.TransitData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitReqs = append(f.transitReqs, at)
	return &domain.TransitData{Date: at.Date, Aspects: f.aspects}, nil
}

func (f *fakeEngine) Synastry(_ context.Context, _ *domain.ChartData, partner service.ChartRequest) ([]domain.Aspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synastryReqs = append(f.synastryReqs, partner)
	return f.aspects, nil
}

func (f *fakeEngine) Positions(_ context.Context, _ time.Time) ([]domain.PlanetPlacement, error) {
	return f.positions, nil
}

func testChart() *domain.ChartData {
	return &domain.ChartData{
		Planets: []domain.PlanetPlacement{
			{Name: "Sun", Sign: "Gemini", Degree: 24.1, House: 10},
			{Name: "Moon", Sign: "Scorpio", Degree: 3.5, House: 3},
			{Name: "Mercury", Sign: "Gemini", Degree: 10, House: 10},
			{Name: "Venus", Sign: "Taurus", Degree: 20, House: 9},
			{Name: "Mars", Sign: "Aries", Degree: 5, House: 8},
		},
		Houses: []domain.HouseCusp{{House: 7, Sign: "Pisces", Degree: 2}},
		Aspects: []domain.Aspect{
			{Planet1: "Sun", Planet2: "Mercury", Type: domain.AspectConjunction, Orb: 1.2},
			{Planet1: "Moon", Planet2: "Venus", Type: domain.AspectOpposition, Orb: 3},
		},
		Ascendant: &domain.Angle{Sign: "Virgo", Degree: 12},
		Midheaven: &domain.Angle{Sign: "Gemini", Degree: 8},
	}
}

type fakeGeocoder struct {
	places map[string]domain.Location
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*domain.Location, error) {
	loc, ok := f.places[query]
	if !ok {
		return nil, &domain.GeocodingError{Query: query, Reason: "no matching place"}
	}
	return &loc, nil
}

type fakeMemory struct {
	mu     sync.Mutex
	stored []domain.Memory
}

func (f *fakeMemory) Store(_ context.Context, userID, content string, memoryType domain.MemoryType, metadata domain.Metadata) (*domain.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := domain.Memory{UserID: userID, Content: content, Type: memoryType, Metadata: metadata, Confidence: 1}
	f.stored = append(f.stored, m)
	return &m, nil
}

func (f *fakeMemory) Search(_ context.Context, userID, query string, limit int) ([]domain.MemorySearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MemorySearchResult
	for _, m := range f.stored {
		if m.UserID == userID && strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
			out = append(out, domain.MemorySearchResult{Memory: m, Relevance: 0.9})
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fixture struct {
	registry *Registry
	profiles *profile.Service
	store    *inmemory.ProfileStore
	engine   *fakeEngine
	memory   *fakeMemory
}

func newFixture() *fixture {
	log := discardLogger()
	engine := &fakeEngine{aspects: []domain.Aspect{
		{Planet1: "Sun", Planet2: "Moon", Type: domain.AspectTrine, Orb: 2},
		{Planet1: "Venus", Planet2: "Mars", Type: domain.AspectSquare, Orb: 1},
		{Planet1: "Jupiter", Planet2: "Sun", Type: domain.AspectSextile, Orb: 0.5},
	}}
	geo := &fakeGeocoder{places: map[string]domain.Location{
		"New York":   {City: "New York", Latitude: 40.7128, Longitude: -74.006, Timezone: "America/New_York"},
		"Paris":      {City: "Paris", Latitude: 48.8566, Longitude: 2.3522, Timezone: "Europe/Paris"},
		"Austin, TX": {City: "Austin", Latitude: 30.2672, Longitude: -97.7431, Timezone: "America/Chicago"},
	}}
	charts := chart.New(engine, inmemory.NewCache(), log)
	store := inmemory.NewProfileStore()
	profiles := profile.New(store, charts, geo, log)
	memory := &fakeMemory{}

	registry, err := NewDefault(Deps{
		Profiles: profiles,
		Charts:   charts,
		Memory:   memory,
		Geocoder: geo,
	}, time.Second, log)
	if err != nil {
		panic(err)
	}
	return &fixture{registry: registry, profiles: profiles, store: store, engine: engine, memory: memory}
}

func ptr[T any](v T) *T { return &v }

func chartProfile(id string) *domain.UserProfile {
	date := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	return &domain.UserProfile{
		ID:     id,
		Name:   ptr("Sarah"),
		Gender: ptr(domain.GenderFemale),
		BirthData: &domain.BirthData{
			Date:     &date,
			Time:     &domain.ClockTime{Hour: 14, Minute: 30},
			Location: &domain.Location{City: "New York", Latitude: 40.7128, Longitude: -74.006, Timezone: "America/New_York"},
		},
		NatalChart:         testChart(),
		OnboardingComplete: true,
	}
}

func call(name string, args map[string]any) domain.ToolCall {
	return domain.ToolCall{ID: "call_1", Name: name, Arguments: args}
}
