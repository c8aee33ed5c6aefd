package tools

import (
	"fmt"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

func placementLine(p domain.PlanetPlacement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %.1f° %s", p.Name, p.Degree, p.Sign)
	if p.House > 0 {
		fmt.Fprintf(&b, ", House %d", p.House)
	}
	if p.Retrograde {
		b.WriteString(" (retrograde)")
	}
	return b.String()
}

func angleLine(label string, a *domain.Angle) string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf("%s: %.1f° %s", label, a.Degree, a.Sign)
}

func aspectLine(a domain.Aspect) string {
	return fmt.Sprintf("%s %s %s (orb: %.1f°)", a.Planet1, a.Type, a.Planet2, a.Orb)
}

func bullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// bigThree Солнце, Луна и асцендент одной строкой
func bigThree(c *domain.ChartData) string {
	var parts []string
	if sun, ok := c.Planet("Sun"); ok {
		parts = append(parts, "Sun in "+sun.Sign)
	}
	if moon, ok := c.Planet("Moon"); ok {
		parts = append(parts, "Moon in "+moon.Sign)
	}
	if c.Ascendant != nil {
		parts = append(parts, c.Ascendant.Sign+" Rising")
	}
	return strings.Join(parts, ", ")
}
