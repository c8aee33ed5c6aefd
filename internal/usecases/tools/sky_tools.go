package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

func moonPhaseTool(deps Deps) *Tool {
	return &Tool{
		Name:        "get_moon_phase",
		Description: "Get the Moon phase and Moon sign for a date.",
		Action:      "checking the Moon phase",
		Params:      []Param{dateParam},
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			date, err := dateArg(tc, args)
			if err != nil {
				return "", err
			}
			phase, err := deps.Charts.MoonPhase(ctx, date)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Moon phase for %s: %s\n", phase.Date.Format(domain.DateLayout), phase.Name)
			fmt.Fprintf(&b, "Illumination: %.0f%%\n", phase.Illumination*100)
			if phase.MoonSign != "" {
				fmt.Fprintf(&b, "Moon sign: %s\n", phase.MoonSign)
			}
			if phase.Description != "" {
				fmt.Fprintf(&b, "\n%s\n", phase.Description)
			}
			return b.String(), nil
		},
	}
}

func retrogradesTool(deps Deps) *Tool {
	return &Tool{
		Name:        "get_retrograde_planets",
		Description: "List planets that are retrograde on a date and what that means. Includes natal houses when the user's chart is known.",
		Action:      "checking retrograde planets",
		Params:      []Param{dateParam},
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			date, err := dateArg(tc, args)
			if err != nil {
				return "", err
			}
			var natal *domain.ChartData
			if tc.Profile.HasChart() {
				natal = tc.Profile.NatalChart
			}
			report, err := deps.Charts.Retrogrades(ctx, date, natal)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			day := report.Date.Format(domain.DateLayout)
			if len(report.Planets) == 0 {
				fmt.Fprintf(&b, "No planets are retrograde on %s.\n", day)
			} else {
				fmt.Fprintf(&b, "Retrograde planets on %s:\n", day)
				for _, p := range report.Planets {
					fmt.Fprintf(&b, "- %s retrograde in %s", p.Name, p.Sign)
					if p.NatalHouse > 0 {
						fmt.Fprintf(&b, " (your %s house)", ordinal(p.NatalHouse))
					}
					fmt.Fprintf(&b, ": %s\n", p.Meaning)
				}
			}
			if len(report.Direct) > 0 {
				fmt.Fprintf(&b, "\nDirect: %s\n", strings.Join(report.Direct, ", "))
			}
			return b.String(), nil
		},
	}
}
