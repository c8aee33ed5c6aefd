package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Gender пол пользователя, определяет местоимения
type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderNonBinary      Gender = "non_binary"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderNonBinary, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

// Location город с координатами и таймзоной
type Location struct {
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

func (l *Location) String() string {
	if l == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%s (%.4f, %.4f, %s)", l.City, l.Latitude, l.Longitude, l.Timezone)
}

// ClockTime время суток без даты (HH:MM:SS)
type ClockTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseClockTime разбирает строку в формате HH:MM:SS
func ParseClockTime(s string) (ClockTime, error) {
	parsed, err := time.Parse(TimeLayout, s)
	if err != nil {
		return ClockTime{}, err
	}
	return ClockTime{Hour: parsed.Hour(), Minute: parsed.Minute(), Second: parsed.Second()}, nil
}

// Noon используется для расчёта карты, когда время рождения неизвестно
var Noon = ClockTime{Hour: 12}

// BirthData данные рождения для натальной карты
type BirthData struct {
	Date        *time.Time `json:"date,omitempty"`
	Time        *ClockTime `json:"time,omitempty"`
	TimeUnknown bool       `json:"time_unknown"`
	Location    *Location  `json:"location,omitempty"`
}

// ChartTime время для расчёта карты: указанное или полдень
func (b *BirthData) ChartTime() ClockTime {
	if b == nil || b.Time == nil {
		return Noon
	}
	return *b.Time
}

// UserProfile профиль пользователя: личные данные, данные рождения и кэш натальной карты
type UserProfile struct {
	ID                 string     `json:"id"`
	Name               *string    `json:"name,omitempty"`
	Email              *string    `json:"email,omitempty"`
	Gender             *Gender    `json:"gender,omitempty"`
	BirthData          *BirthData `json:"birth_data,omitempty"`
	CurrentLocation    *Location  `json:"current_location,omitempty"`
	NatalChart         *ChartData `json:"natal_chart,omitempty"`
	ChartComputedAt    *time.Time `json:"chart_computed_at,omitempty"`
	OnboardingComplete bool       `json:"onboarding_complete"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewUserProfile создаёт пустой профиль для нового пользователя
func NewUserProfile(id string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *UserProfile) DisplayName() string {
	if p == nil || p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return "friend"
	}
	return *p.Name
}

func (p *UserProfile) Pronoun() string {
	if p == nil || p.Gender == nil {
		return "they/them"
	}
	switch *p.Gender {
	case GenderMale:
		return "he/him"
	case GenderFemale:
		return "she/her"
	default:
		return "they/them"
	}
}

// HasCompleteBirthData достаточно ли данных для расчёта натальной карты
func (p *UserProfile) HasCompleteBirthData() bool {
	return p != nil &&
		p.BirthData != nil &&
		p.BirthData.Date != nil &&
		p.BirthData.Location != nil
}

// NeedsBirthTime время рождения ещё не указано и не отмечено как неизвестное
func (p *UserProfile) NeedsBirthTime() bool {
	return p != nil &&
		p.BirthData != nil &&
		p.BirthData.Time == nil &&
		!p.BirthData.TimeUnknown
}

func (p *UserProfile) HasChart() bool {
	return p != nil && p.NatalChart != nil && len(p.NatalChart.Planets) > 0
}

// BirthDateString дата рождения в ISO формате или пустая строка
func (p *UserProfile) BirthDateString() string {
	if p == nil || p.BirthData == nil || p.BirthData.Date == nil {
		return ""
	}
	return p.BirthData.Date.Format(DateLayout)
}

// TransitLocation текущее местоположение, иначе место рождения
func (p *UserProfile) TransitLocation() *Location {
	if p == nil {
		return nil
	}
	if p.CurrentLocation != nil {
		return p.CurrentLocation
	}
	if p.BirthData != nil {
		return p.BirthData.Location
	}
	return nil
}

// Clone глубокая копия профиля, чтобы изменения не протекали в общее состояние
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Name != nil {
		v := *p.Name
		c.Name = &v
	}
	if p.Email != nil {
		v := *p.Email
		c.Email = &v
	}
	if p.Gender != nil {
		v := *p.Gender
		c.Gender = &v
	}
	if p.BirthData != nil {
		bd := *p.BirthData
		if p.BirthData.Date != nil {
			v := *p.BirthData.Date
			bd.Date = &v
		}
		if p.BirthData.Time != nil {
			v := *p.BirthData.Time
			bd.Time = &v
		}
		if p.BirthData.Location != nil {
			v := *p.BirthData.Location
			bd.Location = &v
		}
		c.BirthData = &bd
	}
	if p.CurrentLocation != nil {
		v := *p.CurrentLocation
		c.CurrentLocation = &v
	}
	if p.NatalChart != nil {
		c.NatalChart = p.NatalChart.Clone()
	}
	if p.ChartComputedAt != nil {
		v := *p.ChartComputedAt
		c.ChartComputedAt = &v
	}
	return &c
}

// OffsetTimezone грубая зона Etc/GMT по долготе, когда точная IANA зона неизвестна.
// Знак в именах Etc инвертирован: восточнее Гринвича Etc/GMT-N
func OffsetTimezone(longitude float64) string {
	hours := int(longitude/15 + 0.5)
	if longitude < 0 {
		hours = int(longitude/15 - 0.5)
	}
	switch {
	case hours == 0:
		return "UTC"
	case hours > 0:
		return fmt.Sprintf("Etc/GMT-%d", hours)
	default:
		return fmt.Sprintf("Etc/GMT+%d", -hours)
	}
}
