package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/profile"
)

func currentTransitsTool(deps Deps) *Tool {
	return &Tool{
		Name: "get_current_transits",
		Description: "Get current transit aspects for the user's natal chart. Use this when the user asks about timing, " +
			"current focus, or what's happening now, this week or this month.",
		Action:        "calculating your transits",
		Params:        []Param{dateParam},
		RequiresChart: true,
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			date, err := dateArg(tc, args)
			if err != nil {
				return "", err
			}
			loc := tc.Profile.TransitLocation()
			data, err := deps.Charts.Transits(ctx, tc.Profile.NatalChart, date, loc)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Transit aspects for %s", data.Date.Format(domain.DateLayout))
			if loc != nil && loc.City != "" {
				fmt.Fprintf(&b, " (location: %s)", loc.City)
			}
			b.WriteString(":\n\n")
			if len(data.SignificantTransits) > 0 {
				b.WriteString("Major transits:\n")
				bullets(&b, data.SignificantTransits)
			}
			fmt.Fprintf(&b, "\nTotal aspects found: %d\n", len(data.Aspects))
			if len(data.Aspects) > 0 {
				b.WriteString("\nTop aspects:\n")
				for i, a := range data.Aspects {
					if i == 5 {
						break
					}
					fmt.Fprintf(&b, "- %s %s natal %s (orb: %.1f°)\n", a.Planet1, a.Type, a.Planet2, a.Orb)
				}
			}
			return b.String(), nil
		},
	}
}

func synastryTool(deps Deps) *Tool {
	return &Tool{
		Name: "analyze_synastry",
		Description: "Analyze relationship compatibility (synastry) between the user and a partner. Use this when the user " +
			"asks about compatibility with someone. Prefer passing partner_location so it can be looked up.",
		Action: "analyzing your compatibility",
		Params: []Param{
			{Name: "partner_birth_date", Type: TypeString, Description: "Partner's birth date, YYYY-MM-DD preferred", Required: true},
			{Name: "partner_birth_time", Type: TypeString, Description: "Partner's birth time, e.g. 14:30 or 2:30 PM (optional but recommended)"},
			{Name: "partner_location", Type: TypeString, Description: "Partner's birth place (City, Country)"},
			{Name: "partner_latitude", Type: TypeNumber, Description: "Partner's birth latitude"},
			{Name: "partner_longitude", Type: TypeNumber, Description: "Partner's birth longitude"},
		},
		RequiresChart: true,
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			date, err := profile.ParseBirthDate(args.String("partner_birth_date"), tc.Now)
			if err != nil {
				return "", err
			}
			partner := domain.PartnerBirth{Date: date}
			if raw := args.String("partner_birth_time"); raw != "" {
				t, _, err := profile.ParseBirthTime(raw)
				if err != nil {
					return "", err
				}
				partner.Time = t
			}

			var notes []string
			located := false
			if place := args.String("partner_location"); place != "" && deps.Geocoder != nil {
				loc, err := deps.Geocoder.Geocode(ctx, place)
				if err == nil {
					partner.Latitude, partner.Longitude, partner.Timezone = loc.Latitude, loc.Longitude, loc.Timezone
					located = true
				} else {
					notes = append(notes, fmt.Sprintf("I couldn't find %q, so the partner's location was not used.", place))
				}
			}
			if !located {
				lat, hasLat := args.Float("partner_latitude")
				lon, hasLon := args.Float("partner_longitude")
				if hasLat && hasLon {
					partner.Latitude, partner.Longitude = lat, lon
					partner.Timezone = domain.OffsetTimezone(lon)
				} else {
					partner.Approximate = true
					partner.Timezone = "UTC"
				}
			}
			if partner.Time == nil {
				notes = append(notes, "The partner's birth time is unknown, so noon was used.")
			}

			data, err := deps.Charts.Synastry(ctx, tc.Profile.NatalChart, partner)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			b.WriteString("Synastry Analysis:\n\n")
			fmt.Fprintf(&b, "Compatibility Score: %d/100\n\n", data.CompatibilityScore)
			if len(data.Strengths) > 0 {
				b.WriteString("Relationship Strengths:\n")
				bullets(&b, data.Strengths)
				b.WriteString("\n")
			}
			if len(data.Challenges) > 0 {
				b.WriteString("Relationship Challenges:\n")
				bullets(&b, data.Challenges)
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Aspects between the charts: %d\n", len(data.Aspects))
			if data.Approximate {
				notes = append(notes, data.ApproximationNote)
			}
			if len(notes) > 0 {
				b.WriteString("\nNotes:\n")
				bullets(&b, notes)
			}
			return b.String(), nil
		},
	}
}

var houseQueryRe = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+house\b|\bhouse\s+(\d{1,2})\b`)

func searchChartTool() *Tool {
	return &Tool{
		Name: "search_chart_memory",
		Description: "Look up specific details in the user's natal chart: a planet (\"Mars\"), a sign (\"Scorpio\"), " +
			"a house (\"house 7\"), aspects, or the rising sign.",
		Action:        "looking up your chart",
		Params:        []Param{{Name: "query", Type: TypeString, Description: "What to look up, e.g. \"Venus\", \"7th house\", \"Moon aspects\"", Required: true}},
		RequiresChart: true,
		Handler: func(_ context.Context, tc *TurnContext, args Args) (string, error) {
			return SearchChart(tc.Profile.NatalChart, args.String("query")), nil
		},
	}
}

// SearchChart структурированный поиск по карте; без совпадений отдаёт всю сводку
func SearchChart(chart *domain.ChartData, query string) string {
	q := strings.ToLower(query)
	var lines []string
	seen := map[string]bool{}
	add := func(line string) {
		if line != "" && !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	var planets []string
	for _, p := range chart.Planets {
		if strings.Contains(q, strings.ToLower(p.Name)) {
			planets = append(planets, p.Name)
			add(placementLine(p))
		}
	}
	for _, sign := range domain.ZodiacSigns {
		if !strings.Contains(q, strings.ToLower(sign)) {
			continue
		}
		for _, p := range chart.Planets {
			if p.Sign == sign {
				add(placementLine(p))
			}
		}
		if chart.Ascendant != nil && chart.Ascendant.Sign == sign {
			add(angleLine("Ascendant", chart.Ascendant))
		}
	}
	for _, m := range houseQueryRe.FindAllStringSubmatch(q, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		house, _ := strconv.Atoi(raw)
		if house < 1 || house > 12 {
			continue
		}
		for _, c := range chart.Houses {
			if c.House == house {
				add(fmt.Sprintf("House %d cusp: %.1f° %s", house, c.Degree, c.Sign))
			}
		}
		found := false
		for _, p := range chart.Planets {
			if p.House == house {
				add(placementLine(p))
				found = true
			}
		}
		if !found {
			add(fmt.Sprintf("No planets in House %d", house))
		}
	}
	if strings.Contains(q, "rising") || strings.Contains(q, "ascendant") {
		add(angleLine("Ascendant", chart.Ascendant))
	}
	if strings.Contains(q, "midheaven") || strings.Contains(q, "mc") {
		add(angleLine("Midheaven", chart.Midheaven))
	}
	if strings.Contains(q, "aspect") {
		count := 0
		for _, a := range chart.Aspects {
			if len(planets) > 0 && !contains(planets, a.Planet1) && !contains(planets, a.Planet2) {
				continue
			}
			add(aspectLine(a))
			count++
			if count == 10 {
				break
			}
		}
	}

	if len(lines) == 0 {
		return natalSummary(chart)
	}
	return fmt.Sprintf("Chart details for %q:\n\n%s\n", query, strings.Join(lines, "\n"))
}

func natalSummaryTool() *Tool {
	return &Tool{
		Name:          "get_natal_chart_summary",
		Description:   "Get a summary of the user's natal chart: Sun, Moon and Rising, personal planets and house placements.",
		Action:        "summarizing your natal chart",
		RequiresChart: true,
		Handler: func(_ context.Context, tc *TurnContext, _ Args) (string, error) {
			return natalSummary(tc.Profile.NatalChart), nil
		},
	}
}

func natalSummary(chart *domain.ChartData) string {
	var b strings.Builder
	b.WriteString("Natal Chart Summary:\n\n")
	if big := bigThree(chart); big != "" {
		fmt.Fprintf(&b, "Big three: %s\n\n", big)
	}

	b.WriteString("Core placements:\n")
	for _, name := range []string{"Sun", "Moon"} {
		if p, ok := chart.Planet(name); ok {
			fmt.Fprintf(&b, "- %s\n", placementLine(p))
		}
	}
	if line := angleLine("Ascendant", chart.Ascendant); line != "" {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if line := angleLine("Midheaven", chart.Midheaven); line != "" {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nPersonal planets:\n")
	for _, name := range []string{"Mercury", "Venus", "Mars"} {
		if p, ok := chart.Planet(name); ok {
			fmt.Fprintf(&b, "- %s\n", placementLine(p))
		}
	}

	b.WriteString("\nOuter planets:\n")
	for _, name := range []string{"Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"} {
		if p, ok := chart.Planet(name); ok {
			fmt.Fprintf(&b, "- %s\n", placementLine(p))
		}
	}
	return b.String()
}

func solarReturnTool(deps Deps) *Tool {
	return &Tool{
		Name:          "get_solar_return",
		Description:   "Calculate the user's solar return chart (birthday chart) for a year and the themes it highlights.",
		Action:        "calculating your solar return",
		Params:        []Param{{Name: "year", Type: TypeInteger, Description: "Year of the solar return. Defaults to the current year."}},
		RequiresChart: true,
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			year := tc.Today().Year()
			if y, ok := args.Int("year"); ok {
				year = y
			}
			if year < 1900 || year > 2200 {
				return "", &domain.ParseError{Field: "year", Value: strconv.Itoa(year)}
			}
			sr, err := deps.Charts.SolarReturn(ctx, tc.Profile.BirthData, year)
			if err != nil {
				return "", err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Solar Return %d (chart for %s at noon in the birth place):\n\n", sr.Year, sr.Date.Format(domain.DateLayout))
			if sr.SunHouse > 0 {
				fmt.Fprintf(&b, "Sun in the %s house of the solar return chart.\n", ordinal(sr.SunHouse))
			}
			if sr.Ascendant != "" {
				fmt.Fprintf(&b, "Solar return Ascendant: %s\n", sr.Ascendant)
			}
			if sr.MoonSign != "" {
				fmt.Fprintf(&b, "Solar return Moon: %s\n", sr.MoonSign)
			}
			if len(sr.Themes) > 0 {
				b.WriteString("\nThemes for the year:\n")
				bullets(&b, sr.Themes)
			}
			return b.String(), nil
		},
	}
}

func dignitiesTool(deps Deps) *Tool {
	return &Tool{
		Name:          "get_planetary_dignities",
		Description:   "Classify the user's natal planets by essential dignity (domicile, exaltation, detriment, fall).",
		Action:        "assessing your planetary dignities",
		RequiresChart: true,
		Handler: func(_ context.Context, tc *TurnContext, _ Args) (string, error) {
			report := deps.Charts.Dignities(tc.Profile.NatalChart)

			var b strings.Builder
			b.WriteString("Planetary Dignities:\n")
			sections := []struct {
				title    string
				strength domain.DignityStrength
			}{
				{"Strong (domicile or exaltation)", domain.StrengthStrong},
				{"Challenged (detriment or fall)", domain.StrengthWeak},
			}
			for _, s := range sections {
				items := report.ByStrength(s.strength)
				if len(items) == 0 {
					continue
				}
				fmt.Fprintf(&b, "\n%s:\n", s.title)
				for _, d := range items {
					fmt.Fprintf(&b, "- %s in %s: %s", d.Planet, d.Sign, d.Dignity)
					if d.Meaning != "" {
						fmt.Fprintf(&b, ". %s", d.Meaning)
					}
					b.WriteString("\n")
				}
			}
			if neutral := report.ByStrength(domain.StrengthNeutral); len(neutral) > 0 {
				names := make([]string, len(neutral))
				for i, d := range neutral {
					names[i] = fmt.Sprintf("%s in %s", d.Planet, d.Sign)
				}
				fmt.Fprintf(&b, "\nNeutral (peregrine): %s\n", strings.Join(names, ", "))
			}
			return b.String(), nil
		},
	}
}

func aspectPatternsTool(deps Deps) *Tool {
	return &Tool{
		Name:          "get_aspect_patterns",
		Description:   "Find major aspect patterns in the user's natal chart: Grand Trines, T-Squares and Stelliums.",
		Action:        "looking for aspect patterns",
		RequiresChart: true,
		Handler: func(_ context.Context, tc *TurnContext, _ Args) (string, error) {
			report := deps.Charts.AspectPatterns(tc.Profile.NatalChart)
			if len(report.Patterns) == 0 {
				return "No Grand Trines, T-Squares or Stelliums were found in this chart. The energy is spread across individual placements rather than concentrated in a major pattern.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Aspect patterns found: %d\n\n", len(report.Patterns))
			for _, p := range report.Patterns {
				fmt.Fprintf(&b, "%s: %s", p.Kind, strings.Join(p.Planets, ", "))
				switch {
				case p.Apex != "":
					fmt.Fprintf(&b, " (apex: %s)", p.Apex)
				case p.Sign != "":
					fmt.Fprintf(&b, " in %s", p.Sign)
				}
				if p.Element != "" {
					fmt.Fprintf(&b, ", %s element", p.Element)
				}
				fmt.Fprintf(&b, "\n  %s\n", p.Description)
			}
			return b.String(), nil
		},
	}
}
