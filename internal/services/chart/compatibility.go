package chart

import (
	"fmt"

	"github.com/admin/astro-agent/internal/domain"
)

const maxSignificantTransits = 5

var compatibilityWeights = map[domain.AspectType]int{
	domain.AspectTrine:       3,
	domain.AspectSextile:     2,
	domain.AspectConjunction: 1,
	domain.AspectOpposition:  -2,
	domain.AspectSquare:      -3,
}

// CompatibilityScore от 50 с весами по аспектам, в пределах 0..100
func CompatibilityScore(aspects []domain.Aspect) int {
	score := 50
	for _, a := range aspects {
		score += compatibilityWeights[a.Type]
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Strengths первые три гармоничных аспекта
func Strengths(aspects []domain.Aspect) []string {
	return pickAspects(aspects, 3, domain.AspectTrine, domain.AspectSextile)
}

// Challenges первые три напряжённых аспекта
func Challenges(aspects []domain.Aspect) []string {
	return pickAspects(aspects, 3, domain.AspectOpposition, domain.AspectSquare)
}

func pickAspects(aspects []domain.Aspect, limit int, types ...domain.AspectType) []string {
	out := []string{}
	for _, a := range aspects {
		if len(out) == limit {
			break
		}
		for _, t := range types {
			if a.Type == t {
				out = append(out, fmt.Sprintf("%s-%s %s", a.Planet1, a.Planet2, a.Type))
				break
			}
		}
	}
	return out
}

// SignificantTransits мажорные аспекты в порядке движка, не больше пяти
func SignificantTransits(aspects []domain.Aspect) []string {
	out := []string{}
	for _, a := range aspects {
		if !a.Type.IsMajor() {
			continue
		}
		out = append(out, a.String())
		if len(out) == maxSignificantTransits {
			break
		}
	}
	return out
}
