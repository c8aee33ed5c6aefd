package chart

import (
	"errors"
	"math"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

type moonPhaseBucket struct {
	name        string
	description string
}

// phases по 45° от новолуния
var phases = [8]moonPhaseBucket{
	{"New Moon", "New beginnings, setting intentions, planting seeds"},
	{"Waxing Crescent", "Building momentum, taking initial action"},
	{"First Quarter", "Challenges and decisions, overcoming obstacles"},
	{"Waxing Gibbous", "Refining, adjusting, almost there"},
	{"Full Moon", "Culmination, manifestation, revelations"},
	{"Waning Gibbous", "Gratitude, sharing, integrating lessons"},
	{"Last Quarter", "Releasing, letting go, clearing"},
	{"Waning Crescent", "Rest, reflection, preparation for renewal"},
}

// PhaseForAngle фаза по углу Луна-Солнце
func PhaseForAngle(angle float64) (name, description string) {
	angle = domain.NormalizeDegrees(angle)
	b := phases[int(angle/45)%8]
	return b.name, b.description
}

// Illumination освещённая доля диска 0..1
func Illumination(angle float64) float64 {
	v := (1 - math.Cos(angle*math.Pi/180)) / 2
	return math.Round(v*1000) / 1000
}

// MoonPhaseFromPositions фаза из положений Солнца и Луны
func MoonPhaseFromPositions(date time.Time, positions []domain.PlanetPlacement) (*domain.MoonPhase, error) {
	c := &domain.ChartData{Planets: positions}
	sun, okSun := c.Planet("Sun")
	moon, okMoon := c.Planet("Moon")
	if !okSun || !okMoon {
		return nil, errors.New("sun or moon position is missing")
	}
	angle := domain.NormalizeDegrees(moon.Longitude() - sun.Longitude())
	name, desc := PhaseForAngle(angle)
	return &domain.MoonPhase{
		Date:         date,
		Name:         name,
		Description:  desc,
		Angle:        math.Round(angle*10) / 10,
		Illumination: Illumination(angle),
		MoonSign:     moon.Sign,
	}, nil
}
