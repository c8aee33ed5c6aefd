package chart

import (
	"fmt"
	"slices"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

type dignityTable struct {
	rulership []string
	exalted   string
	detriment []string
	fall      string
}

var dignityTables = map[string]dignityTable{
	"sun":     {[]string{"Leo"}, "Aries", []string{"Aquarius"}, "Libra"},
	"moon":    {[]string{"Cancer"}, "Taurus", []string{"Capricorn"}, "Scorpio"},
	"mercury": {[]string{"Gemini", "Virgo"}, "Virgo", []string{"Sagittarius", "Pisces"}, "Pisces"},
	"venus":   {[]string{"Taurus", "Libra"}, "Pisces", []string{"Aries", "Scorpio"}, "Virgo"},
	"mars":    {[]string{"Aries", "Scorpio"}, "Capricorn", []string{"Taurus", "Libra"}, "Cancer"},
	"jupiter": {[]string{"Sagittarius", "Pisces"}, "Cancer", []string{"Gemini", "Virgo"}, "Capricorn"},
	"saturn":  {[]string{"Capricorn", "Aquarius"}, "Libra", []string{"Cancer", "Leo"}, "Aries"},
	"uranus":  {rulership: []string{"Aquarius"}},
	"neptune": {rulership: []string{"Pisces"}},
	"pluto":   {rulership: []string{"Scorpio"}},
}

// ClassifyDignity достоинство планеты в знаке; порядок проверки: обитель, экзальтация, изгнание, падение
func ClassifyDignity(planet, sign string) domain.PlanetDignity {
	sign = domain.NormalizeSign(sign)
	d := domain.PlanetDignity{Planet: planet, Sign: sign, Strength: domain.StrengthNeutral}
	table, ok := dignityTables[strings.ToLower(planet)]
	if !ok || sign == "" {
		return d
	}
	switch {
	case slices.Contains(table.rulership, sign):
		d.Dignity, d.Strength = domain.DignityDomicile, domain.StrengthStrong
		d.Meaning = fmt.Sprintf("%s is at home in %s, expressing its nature freely", planet, sign)
	case table.exalted == sign:
		d.Dignity, d.Strength = domain.DignityExalted, domain.StrengthStrong
		d.Meaning = fmt.Sprintf("%s is honored in %s, operating at its best", planet, sign)
	case slices.Contains(table.detriment, sign):
		d.Dignity, d.Strength = domain.DignityDetriment, domain.StrengthWeak
		d.Meaning = fmt.Sprintf("%s must work harder in %s, a challenging placement", planet, sign)
	case table.fall == sign:
		d.Dignity, d.Strength = domain.DignityFall, domain.StrengthWeak
		d.Meaning = fmt.Sprintf("%s struggles in %s, requiring conscious effort", planet, sign)
	}
	return d
}

// Dignities достоинства всех планет карты в порядке карты
func Dignities(natal *domain.ChartData) domain.DignityReport {
	report := domain.DignityReport{Placements: []domain.PlanetDignity{}}
	if natal == nil {
		return report
	}
	for _, p := range natal.Planets {
		if p.Sign == "" {
			continue
		}
		report.Placements = append(report.Placements, ClassifyDignity(p.Name, p.Sign))
	}
	return report
}
