package profile

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/araddon/dateparse"
)

// ParseGender приводит свободный ответ к одному из значений domain.Gender
func ParseGender(value string) domain.Gender {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.Join(strings.Fields(v), " ")
	switch v {
	case "man", "male", "he", "him", "he/him", "m", "boy", "guy":
		return domain.GenderMale
	case "woman", "female", "she", "her", "she/her", "f", "girl":
		return domain.GenderFemale
	case "they", "them", "they/them", "nonbinary", "non-binary", "non binary", "non_binary", "enby", "nb":
		return domain.GenderNonBinary
	case "other":
		return domain.GenderOther
	}
	return domain.GenderPreferNotToSay
}

var (
	ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	spacesRe  = regexp.MustCompile(`\s+`)
	clockRe   = regexp.MustCompile(`^(\d{1,2})(?:[:.h](\d{2}))?(?::(\d{2}))?\s*(am|pm|a\.m\.?|p\.m\.?)?$`)
)

var dateLayouts = []string{
	domain.DateLayout,
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 January, 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
}

// ParseBirthDate разбирает дату рождения в свободной форме, результат в полночь UTC
func ParseBirthDate(value string, now time.Time) (time.Time, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = strings.ReplaceAll(cleaned, " of ", " ")
	cleaned = spacesRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" {
		return time.Time{}, &domain.ParseError{Field: string(domain.FieldBirthDate), Value: value}
	}

	var parsed time.Time
	var ok bool
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		// неоднозначные 06/15/1990 dateparse читает как месяц/день
		t, err := dateparse.ParseIn(cleaned, time.UTC)
		if err != nil {
			return time.Time{}, &domain.ParseError{Field: string(domain.FieldBirthDate), Value: value}
		}
		parsed = t
	}

	date := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	if date.Year() < 1800 || date.After(now) {
		return time.Time{}, &domain.ParseError{Field: string(domain.FieldBirthDate), Value: value}
	}
	return date, nil
}

var unknownTimePhrases = []string{
	"unknown",
	"don't know",
	"dont know",
	"do not know",
	"not sure",
	"no idea",
	"idk",
	"unsure",
	"no clue",
}

// ParseBirthTime разбирает время рождения; unknown=true, если пользователь его не знает
func ParseBirthTime(value string) (t *domain.ClockTime, unknown bool, err error) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.ReplaceAll(v, "’", "'")
	for _, phrase := range unknownTimePhrases {
		if strings.Contains(v, phrase) {
			return nil, true, nil
		}
	}

	for _, prefix := range []string{"at ", "around ", "about ", "approximately ", "approx ", "~"} {
		v = strings.TrimPrefix(v, prefix)
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), ".")
	v = strings.TrimSpace(strings.TrimSuffix(v, "o'clock"))

	switch v {
	case "noon", "midday", "12 noon":
		return &domain.ClockTime{Hour: 12}, false, nil
	case "midnight", "12 midnight":
		return &domain.ClockTime{}, false, nil
	}

	m := clockRe.FindStringSubmatch(strings.ReplaceAll(v, " ", ""))
	if m == nil {
		m = clockRe.FindStringSubmatch(v)
	}
	if m == nil {
		return nil, false, &domain.ParseError{Field: string(domain.FieldBirthTime), Value: value}
	}

	hour, _ := strconv.Atoi(m[1])
	minute, second := 0, 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if meridiem := strings.ReplaceAll(m[4], ".", ""); meridiem != "" {
		if hour < 1 || hour > 12 {
			return nil, false, &domain.ParseError{Field: string(domain.FieldBirthTime), Value: value}
		}
		switch {
		case meridiem == "am" && hour == 12:
			hour = 0
		case meridiem == "pm" && hour != 12:
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return nil, false, &domain.ParseError{Field: string(domain.FieldBirthTime), Value: value}
	}
	return &domain.ClockTime{Hour: hour, Minute: minute, Second: second}, false, nil
}

var coordinatesRe = regexp.MustCompile(`^\s*(-?\d{1,3}(?:\.\d+)?)\s*[,; ]\s*(-?\d{1,3}(?:\.\d+)?)\s*$`)

// ParseCoordinates разбирает "широта, долгота" для мест без геокодирования
func ParseCoordinates(field domain.OnboardingField, value string) (*domain.Location, error) {
	m := coordinatesRe.FindStringSubmatch(value)
	if m == nil {
		return nil, &domain.ParseError{Field: string(field), Value: value}
	}
	lat, _ := strconv.ParseFloat(m[1], 64)
	lon, _ := strconv.ParseFloat(m[2], 64)
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, &domain.ParseError{Field: string(field), Value: value}
	}
	return &domain.Location{
		City:      strings.TrimSpace(value),
		Latitude:  lat,
		Longitude: lon,
		Timezone:  domain.OffsetTimezone(lon),
	}, nil
}
