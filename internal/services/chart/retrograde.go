package chart

import (
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

const defaultRetrogradeMeaning = "Review and reflection in this planet's domain"

// retrogradePlanets Солнце и Луна ретроградными не бывают
var retrogradePlanets = []string{"Mercury", "Venus", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"}

var retrogradeMeanings = map[string]string{
	"mercury": "Communication delays, technology issues, revisiting old ideas, introspection on how you think",
	"venus":   "Relationship review, reassessing values, old flames may reappear, inner beauty work",
	"mars":    "Low energy, anger turned inward, strategic planning, reconsidering actions",
	"jupiter": "Inner growth focus, reviewing beliefs, philosophical introspection",
	"saturn":  "Karmic lessons intensify, restructuring foundations, inner discipline",
	"uranus":  "Internal revolution, breaking free from inner constraints",
	"neptune": "Dreams clarify, illusions dissolve, spiritual introspection",
	"pluto":   "Deep psychological work, power dynamics review, transformation",
}

func RetrogradeMeaning(planet string) string {
	if m, ok := retrogradeMeanings[strings.ToLower(planet)]; ok {
		return m
	}
	return defaultRetrogradeMeaning
}

// RetrogradesFromPositions делит планеты на ретроградные и директные
func RetrogradesFromPositions(date time.Time, positions []domain.PlanetPlacement, natal *domain.ChartData) *domain.RetrogradeReport {
	now := &domain.ChartData{Planets: positions}
	report := &domain.RetrogradeReport{
		Date:    date,
		Planets: []domain.RetrogradePlanet{},
		Direct:  []string{},
	}
	for _, name := range retrogradePlanets {
		p, ok := now.Planet(name)
		if !ok {
			continue
		}
		if !p.Retrograde {
			report.Direct = append(report.Direct, name)
			continue
		}
		report.Planets = append(report.Planets, domain.RetrogradePlanet{
			Name:       name,
			Sign:       p.Sign,
			Meaning:    RetrogradeMeaning(name),
			NatalHouse: natal.HouseOf(p.Longitude()),
		})
	}
	return report
}
