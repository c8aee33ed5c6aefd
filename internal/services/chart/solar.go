package chart

import (
	"fmt"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

var houseThemes = map[int]string{
	1:  "self-identity and personal initiatives",
	2:  "finances, values, and self-worth",
	3:  "communication, learning, and siblings",
	4:  "home, family, and emotional foundations",
	5:  "creativity, romance, and self-expression",
	6:  "health, work routines, and service",
	7:  "partnerships and one-on-one relationships",
	8:  "transformation, shared resources, and intimacy",
	9:  "philosophy, travel, and higher education",
	10: "career, public image, and life direction",
	11: "friendships, groups, and future goals",
	12: "spirituality, solitude, and the unconscious",
}

func HouseTheme(house int) string {
	if t, ok := houseThemes[house]; ok {
		return t
	}
	return "personal growth"
}

// SolarReturnDate день рождения в году year, 29 февраля в невисокосный год становится 28-м
func SolarReturnDate(birth time.Time, year int) time.Time {
	month, day := birth.Month(), birth.Day()
	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// BuildSolarReturn темы года по дому Солнца и знаку Луны
func BuildSolarReturn(year int, date time.Time, chart *domain.ChartData) *domain.SolarReturn {
	sr := &domain.SolarReturn{
		Year:   year,
		Date:   date,
		Chart:  chart,
		Themes: []string{},
	}
	if sun, ok := chart.Planet("Sun"); ok && sun.House > 0 {
		sr.SunHouse = sun.House
		sr.Themes = append(sr.Themes, fmt.Sprintf("Year focuses on %s (Sun in house %d)", HouseTheme(sun.House), sun.House))
	}
	if moon, ok := chart.Planet("Moon"); ok && moon.Sign != "" {
		sr.MoonSign = moon.Sign
		sr.Themes = append(sr.Themes, fmt.Sprintf("Emotional tone: %s energy", moon.Sign))
	}
	if chart != nil && chart.Ascendant != nil {
		sr.Ascendant = chart.Ascendant.Sign
	}
	return sr
}
