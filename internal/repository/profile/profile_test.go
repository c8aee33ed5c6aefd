package profileRepo

import (
	"testing"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRow_RoundTrip(t *testing.T) {
	name := "Sarah"
	gender := domain.GenderFemale
	date := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	clock := domain.ClockTime{Hour: 15, Minute: 30}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	in := &domain.UserProfile{
		ID:     "user_1",
		Name:   &name,
		Gender: &gender,
		BirthData: &domain.BirthData{
			Date:     &date,
			Time:     &clock,
			Location: &domain.Location{City: "Austin", Latitude: 30.27, Longitude: -97.74, Timezone: "America/Chicago"},
		},
		NatalChart: &domain.ChartData{Planets: []domain.PlanetPlacement{{Name: "Sun", Sign: "Gemini"}}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	row, err := fromDomain(in)
	require.NoError(t, err)
	assert.Equal(t, "15:30:00", row.BirthTime.String)
	assert.Len(t, row.args(), 20)
	assert.Len(t, row.updateArgs(), 19)

	out, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestProfileRow_EmptyProfileHasNoBirthData(t *testing.T) {
	row, err := fromDomain(domain.NewUserProfile("user_2", time.Now()))
	require.NoError(t, err)

	out, err := row.toDomain()
	require.NoError(t, err)
	assert.Nil(t, out.BirthData)
	assert.Nil(t, out.CurrentLocation)
	assert.Nil(t, out.Name)
}

func TestProfileRow_TimeUnknownKept(t *testing.T) {
	p := domain.NewUserProfile("user_3", time.Now())
	p.BirthData = &domain.BirthData{TimeUnknown: true}

	row, err := fromDomain(p)
	require.NoError(t, err)
	out, err := row.toDomain()
	require.NoError(t, err)
	require.NotNil(t, out.BirthData)
	assert.True(t, out.BirthData.TimeUnknown)
	assert.Nil(t, out.BirthData.Time)
}
