package chartApi

import (
	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
)

func toBirthData(req service.ChartRequest) BirthData {
	return BirthData{
		Year:      req.Date.Year(),
		Month:     int(req.Date.Month()),
		Day:       req.Date.Day(),
		Hour:      req.Time.Hour,
		Minute:    req.Time.Minute,
		Second:    req.Time.Second,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Timezone:  req.Timezone,
	}
}

func fromNatal(chart *domain.ChartData) NatalPositions {
	out := NatalPositions{Planets: make([]PlanetPosition, 0, len(chart.Planets))}
	for _, p := range chart.Planets {
		out.Planets = append(out.Planets, PlanetPosition{
			Name:       p.Name,
			Sign:       p.Sign,
			Degree:     p.Degree,
			AbsPos:     p.AbsDegree,
			House:      p.House,
			Retrograde: p.Retrograde,
		})
	}
	return out
}

func toPlanets(in []PlanetPosition) []domain.PlanetPlacement {
	out := make([]domain.PlanetPlacement, 0, len(in))
	for _, p := range in {
		out = append(out, domain.PlanetPlacement{
			Name:       p.Name,
			Sign:       p.Sign,
			Degree:     p.Degree,
			AbsDegree:  p.AbsPos,
			House:      p.House,
			Retrograde: p.Retrograde,
		})
	}
	return out
}

func toAspects(in []Aspect) []domain.Aspect {
	out := make([]domain.Aspect, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Aspect{
			Planet1: a.Planet1,
			Planet2: a.Planet2,
			Type:    domain.NormalizeAspectType(a.Aspect),
			Orb:     a.Orb,
		})
	}
	return out
}

func toAngle(a *AnglePosition) *domain.Angle {
	if a == nil {
		return nil
	}
	return &domain.Angle{Sign: a.Sign, Degree: a.Degree}
}

func (c *Client) toChart(body *ChartBody) *domain.ChartData {
	chart := &domain.ChartData{
		Planets:     toPlanets(body.Planets),
		Aspects:     toAspects(body.Aspects),
		Ascendant:   toAngle(body.Ascendant),
		Midheaven:   toAngle(body.Midheaven),
		HouseSystem: c.cfg.HouseSystem,
		ZodiacType:  c.cfg.ZodiacType,
	}
	for _, h := range body.Houses {
		chart.Houses = append(chart.Houses, domain.HouseCusp{House: h.House, Sign: h.Sign, Degree: h.Degree})
	}
	if chart.Ascendant == nil {
		for _, h := range chart.Houses {
			if h.House == 1 {
				chart.Ascendant = &domain.Angle{Sign: h.Sign, Degree: h.Degree}
			}
		}
	}
	return chart
}
