package profile

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/domain"
)

type fakeCharts struct {
	calls int
	last  domain.BirthData
	err   error
}

func (f *fakeCharts) ComputeNatal(_ context.Context, birth *domain.BirthData) (*domain.ChartData, error) {
	f.calls++
	f.last = *birth
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ChartData{Planets: []domain.PlanetPlacement{{Name: "Sun", Sign: "Gemini", House: 10}}}, nil
}

func (f *fakeCharts) Transits(context.Context, *domain.ChartData, time.Time, *domain.Location) (*domain.TransitData, error) {
	return nil, nil
}

func (f *fakeCharts) Synastry(context.Context, *domain.ChartData, domain.PartnerBirth) (*domain.SynastryData, error) {
	return nil, nil
}

func (f *fakeCharts) MoonPhase(context.Context, time.Time) (*domain.MoonPhase, error) {
	return nil, nil
}

func (f *fakeCharts) Retrogrades(context.Context, time.Time, *domain.ChartData) (*domain.RetrogradeReport, error) {
	return nil, nil
}

func (f *fakeCharts) SolarReturn(context.Context, *domain.BirthData, int) (*domain.SolarReturn, error) {
	return nil, nil
}

func (f *fakeCharts) Dignities(*domain.ChartData) domain.DignityReport {
	return domain.DignityReport{}
}

func (f *fakeCharts) AspectPatterns(*domain.ChartData) domain.AspectPatternReport {
	return domain.AspectPatternReport{}
}

type fakeGeocoder struct {
	calls  int
	places map[string]domain.Location
}

func (f *fakeGeocoder) Geocode(_ context.Context, query string) (*domain.Location, error) {
	f.calls++
	loc, ok := f.places[query]
	if !ok {
		return nil, &domain.GeocodingError{Query: query, Reason: "no matching place"}
	}
	return &loc, nil
}

func newTestService() (*Service, *inmemory.ProfileStore, *fakeCharts, *fakeGeocoder) {
	store := inmemory.NewProfileStore()
	charts := &fakeCharts{}
	geo := &fakeGeocoder{places: map[string]domain.Location{
		"Austin, TX": {City: "Austin", Latitude: 30.2672, Longitude: -97.7431, Timezone: "America/Chicago"},
		"Paris":      {City: "Paris", Latitude: 48.8566, Longitude: 2.3522, Timezone: "Europe/Paris"},
	}}
	svc := New(store, charts, geo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, charts, geo
}
