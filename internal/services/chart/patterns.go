package chart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

type pairKey struct{ a, b string }

func newPairKey(p1, p2 string) pairKey {
	p1, p2 = strings.ToLower(p1), strings.ToLower(p2)
	if p1 > p2 {
		p1, p2 = p2, p1
	}
	return pairKey{p1, p2}
}

type aspectIndex map[pairKey]domain.AspectType

func (idx aspectIndex) is(p1, p2 string, t domain.AspectType) bool {
	v, ok := idx[newPairKey(p1, p2)]
	return ok && v == t
}

// AspectPatterns ищет тау-квадраты, большие тригоны и стеллиумы
func AspectPatterns(natal *domain.ChartData) domain.AspectPatternReport {
	report := domain.AspectPatternReport{Patterns: []domain.AspectPattern{}}
	if natal == nil {
		return report
	}

	idx := aspectIndex{}
	var names []string
	seen := map[string]bool{}
	addName := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, a := range natal.Aspects {
		idx[newPairKey(a.Planet1, a.Planet2)] = a.Type
		addName(a.Planet1)
		addName(a.Planet2)
	}

	report.Patterns = append(report.Patterns, grandTrines(natal, idx, names)...)
	report.Patterns = append(report.Patterns, tSquares(natal, idx, names)...)
	report.Patterns = append(report.Patterns, stelliums(natal)...)
	return report
}

func grandTrines(natal *domain.ChartData, idx aspectIndex, names []string) []domain.AspectPattern {
	var out []domain.AspectPattern
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if !idx.is(names[i], names[j], domain.AspectTrine) {
				continue
			}
			for k := j + 1; k < len(names); k++ {
				if !idx.is(names[i], names[k], domain.AspectTrine) || !idx.is(names[j], names[k], domain.AspectTrine) {
					continue
				}
				element := "Unknown"
				if p, ok := natal.Planet(names[i]); ok {
					element = domain.Element(p.Sign)
				}
				out = append(out, domain.AspectPattern{
					Kind:        domain.PatternGrandTrine,
					Planets:     []string{names[i], names[j], names[k]},
					Element:     element,
					Description: fmt.Sprintf("Natural talent and flow in %s matters - gifts that come easily", element),
				})
			}
		}
	}
	return out
}

func tSquares(natal *domain.ChartData, idx aspectIndex, names []string) []domain.AspectPattern {
	var out []domain.AspectPattern
	for _, a := range natal.Aspects {
		if a.Type != domain.AspectOpposition {
			continue
		}
		for _, apex := range names {
			if strings.EqualFold(apex, a.Planet1) || strings.EqualFold(apex, a.Planet2) {
				continue
			}
			if idx.is(apex, a.Planet1, domain.AspectSquare) && idx.is(apex, a.Planet2, domain.AspectSquare) {
				out = append(out, domain.AspectPattern{
					Kind:        domain.PatternTSquare,
					Planets:     []string{a.Planet1, a.Planet2, apex},
					Apex:        apex,
					Description: fmt.Sprintf("Dynamic tension driving growth - %s is the release point", apex),
				})
			}
		}
	}
	return out
}

func stelliums(natal *domain.ChartData) []domain.AspectPattern {
	var out []domain.AspectPattern
	bySign := natal.PlacementsInSign()
	signs := make([]string, 0, len(bySign))
	for sign, planets := range bySign {
		if len(planets) >= 3 {
			signs = append(signs, sign)
		}
	}
	sort.Slice(signs, func(i, j int) bool {
		return domain.SignIndex(signs[i]) < domain.SignIndex(signs[j])
	})
	for _, sign := range signs {
		out = append(out, domain.AspectPattern{
			Kind:        domain.PatternStellium,
			Planets:     bySign[sign],
			Sign:        sign,
			Element:     domain.Element(sign),
			Description: fmt.Sprintf("Concentrated energy in %s - major life theme", sign),
		})
	}
	return out
}
