package tools

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/services/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var june1 = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func TestTransits_DefaultsToToday(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("get_current_transits", nil))
	assert.Contains(t, out, "Transit aspects for 2024-06-01 (location: New York)")
	assert.Contains(t, out, "Major transits:")
	assert.Contains(t, out, "Total aspects found: 3")
	require.Len(t, f.engine.transitReqs, 1)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), f.engine.transitReqs[0].Date)
	assert.Equal(t, "America/New_York", f.engine.transitReqs[0].Timezone)

	out = f.registry.Execute(context.Background(), tc, call("get_current_transits", map[string]any{"date": "next week"}))
	assert.Contains(t, out, `could not understand date "next week"`)
}

var scoreRe = regexp.MustCompile(`Compatibility Score: (\d+)/100`)

func TestSynastry_ApproximateWithoutLocation(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("analyze_synastry", map[string]any{
		"partner_birth_date": "1992-01-02",
	}))

	m := scoreRe.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	score, _ := strconv.Atoi(m[1])
	assert.GreaterOrEqual(t, score, 0)
	assert.LessOrEqual(t, score, 100)
	assert.Contains(t, out, chart.ApproximateLocationNote)
	assert.Contains(t, out, "noon was used")

	require.Len(t, f.engine.synastryReqs, 1)
	req := f.engine.synastryReqs[0]
	assert.Equal(t, 0.0, req.Latitude)
	assert.Equal(t, 0.0, req.Longitude)
	assert.Equal(t, "UTC", req.Timezone)
	assert.Equal(t, domain.Noon, req.Time)
}

func TestSynastry_PrefersGeocodedLocation(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("analyze_synastry", map[string]any{
		"partner_birth_date": "March 3, 1991",
		"partner_birth_time": "7:15 pm",
		"partner_location":   "Paris",
		"partner_latitude":   1.0,
		"partner_longitude":  1.0,
	}))
	assert.NotContains(t, out, chart.ApproximateLocationNote)

	require.Len(t, f.engine.synastryReqs, 1)
	req := f.engine.synastryReqs[0]
	assert.Equal(t, 48.8566, req.Latitude)
	assert.Equal(t, "Europe/Paris", req.Timezone)
	assert.Equal(t, domain.ClockTime{Hour: 19, Minute: 15}, req.Time)
	assert.Equal(t, time.Date(1991, 3, 3, 0, 0, 0, 0, time.UTC), req.Date)
}

func TestSynastry_CoordinatesWhenPlaceUnknown(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("analyze_synastry", map[string]any{
		"partner_birth_date": "1991-03-03",
		"partner_location":   "Atlantis",
		"partner_latitude":   "35.68",
		"partner_longitude":  "139.69",
	}))
	assert.Contains(t, out, `I couldn't find "Atlantis"`)
	assert.NotContains(t, out, chart.ApproximateLocationNote)

	req := f.engine.synastryReqs[0]
	assert.Equal(t, 35.68, req.Latitude)
	assert.Equal(t, "Etc/GMT-9", req.Timezone)
}

func TestUpdateProfile_RefreshesTurnContext(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	date := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.Create(ctx, &domain.UserProfile{
		ID:        "u1",
		Name:      ptr("Sarah"),
		Gender:    ptr(domain.GenderFemale),
		BirthData: &domain.BirthData{Date: &date},
	}))
	p, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	tc := &TurnContext{UserID: "u1", Profile: p, Now: june1}

	out := f.registry.Execute(ctx, tc, call("update_user_profile", map[string]any{
		"field": "birth_city",
		"value": "Austin, TX",
	}))
	assert.Contains(t, out, "Saved birth city: Austin")
	assert.Contains(t, out, "Natal chart calculated: Sun in Gemini, Moon in Scorpio, Virgo Rising.")
	assert.Contains(t, out, "noon was used")
	assert.Contains(t, out, "Next question to ask: Do you know what time you were born?")
	assert.True(t, tc.ChartUpdated)
	require.True(t, tc.Profile.HasChart())

	// следующий инструмент в том же ходе видит новую карту
	out = f.registry.Execute(ctx, tc, call("get_natal_chart_summary", nil))
	assert.Contains(t, out, "Natal Chart Summary:")
	assert.Contains(t, out, "Sun: 24.1° Gemini, House 10")

	out = f.registry.Execute(ctx, tc, call("update_user_profile", map[string]any{
		"field": "birth_city",
		"value": "Austin, TX",
	}))
	assert.Contains(t, out, "No change: birth city was already Austin")

	out = f.registry.Execute(ctx, tc, call("update_user_profile", map[string]any{
		"field": "zodiac",
		"value": "Leo",
	}))
	assert.Contains(t, out, "must be one of name, gender, birth_date")
}

func TestUpdateProfile_UnknownPlace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.store.Create(ctx, &domain.UserProfile{ID: "u1"}))
	tc := &TurnContext{UserID: "u1", Profile: &domain.UserProfile{ID: "u1"}, Now: june1}

	out := f.registry.Execute(ctx, tc, call("update_user_profile", map[string]any{
		"field": "current_city",
		"value": "Springfield",
	}))
	assert.Contains(t, out, "I'm sorry, I ran into a problem while saving your profile")
	assert.Contains(t, out, "Springfield")
	assert.Nil(t, tc.Profile.CurrentLocation)
}

func TestMemoryTools(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tc := &TurnContext{UserID: "u1", ConversationID: "conv-1", Profile: &domain.UserProfile{ID: "u1"}, Now: june1}

	out := f.registry.Execute(ctx, tc, call("store_user_memory", map[string]any{
		"content": "User prefers short readings",
	}))
	assert.Equal(t, "Remembered (procedural): User prefers short readings", out)

	out = f.registry.Execute(ctx, tc, call("store_user_memory", map[string]any{
		"content":     "User works as a nurse",
		"memory_type": "SEMANTIC",
	}))
	assert.Contains(t, out, "(semantic)")
	require.Len(t, f.memory.stored, 2)
	assert.Equal(t, "conv-1", f.memory.stored[0].Metadata["conversation_id"])
	assert.Equal(t, "tool", f.memory.stored[0].Metadata["source"])

	out = f.registry.Execute(ctx, tc, call("search_user_memories", map[string]any{"query": "nurse", "limit": 50}))
	assert.Contains(t, out, "Found 1 memories:")
	assert.Contains(t, out, "1. [semantic] User works as a nurse (relevance 0.90)")

	out = f.registry.Execute(ctx, tc, call("search_user_memories", map[string]any{"query": "pets"}))
	assert.Equal(t, `No memories found for "pets".`, out)
}

func TestSkyTools_NotGated(t *testing.T) {
	f := newFixture()
	f.engine.positions = []domain.PlanetPlacement{
		{Name: "Sun", Sign: "Aries", Degree: 10},
		{Name: "Moon", Sign: "Libra", Degree: 12},
		{Name: "Mercury", Sign: "Aries", Degree: 20, Retrograde: true},
		{Name: "Venus", Sign: "Pisces", Degree: 5},
	}
	tc := &TurnContext{UserID: "u1", Profile: &domain.UserProfile{ID: "u1"}, Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("get_moon_phase", map[string]any{"date": "2024-04-01"}))
	assert.Contains(t, out, "Moon phase for 2024-04-01: Full Moon")

	out = f.registry.Execute(context.Background(), tc, call("get_retrograde_planets", nil))
	assert.Contains(t, out, "Retrograde planets on 2024-06-01:")
	assert.Contains(t, out, "- Mercury retrograde in Aries")
	assert.Contains(t, out, "Direct: Venus")
}

func TestSearchChart(t *testing.T) {
	c := testChart()

	out := SearchChart(c, "what about my 7th house?")
	assert.Contains(t, out, "House 7 cusp: 2.0° Pisces")
	assert.Contains(t, out, "No planets in House 7")

	out = SearchChart(c, "Venus aspects")
	assert.Contains(t, out, "Venus: 20.0° Taurus, House 9")
	assert.Contains(t, out, "Moon opposition Venus (orb: 3.0°)")
	assert.NotContains(t, out, "Sun conjunction Mercury")

	out = SearchChart(c, "rising")
	assert.Contains(t, out, "Ascendant: 12.0° Virgo")

	out = SearchChart(c, "something vague")
	assert.Contains(t, out, "Natal Chart Summary:")
	assert.Contains(t, out, "Big three: Sun in Gemini, Moon in Scorpio, Virgo Rising")
}

func TestSolarReturn_YearValidation(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("get_solar_return", map[string]any{"year": "2025"}))
	assert.Contains(t, out, "Solar Return 2025 (chart for 2025-06-15")
	assert.Contains(t, out, "Sun in the 10th house")

	out = f.registry.Execute(context.Background(), tc, call("get_solar_return", map[string]any{"year": 1800}))
	assert.Contains(t, out, `could not understand year "1800"`)
}

func TestChartDerivedTools(t *testing.T) {
	f := newFixture()
	tc := &TurnContext{UserID: "u1", Profile: chartProfile("u1"), Now: june1}

	out := f.registry.Execute(context.Background(), tc, call("get_planetary_dignities", nil))
	assert.Contains(t, out, "Planetary Dignities:")
	assert.Contains(t, out, "Venus in Taurus: Domicile")

	out = f.registry.Execute(context.Background(), tc, call("get_aspect_patterns", nil))
	assert.NotEmpty(t, out)
	assert.NotContains(t, out, "I'm sorry")
}
