package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AspectType тип углового соотношения между планетами
type AspectType string

const (
	AspectConjunction    AspectType = "conjunction"
	AspectOpposition     AspectType = "opposition"
	AspectSquare         AspectType = "square"
	AspectTrine          AspectType = "trine"
	AspectSextile        AspectType = "sextile"
	AspectQuincunx       AspectType = "quincunx"
	AspectSemiSextile    AspectType = "semi-sextile"
	AspectSemiSquare     AspectType = "semi-square"
	AspectSesquiquadrate AspectType = "sesquiquadrate"
	AspectQuintile       AspectType = "quintile"
)

// IsMajor мажорные аспекты Птолемея
func (a AspectType) IsMajor() bool {
	switch a {
	case AspectConjunction, AspectOpposition, AspectSquare, AspectTrine, AspectSextile:
		return true
	}
	return false
}

// NormalizeAspectType приводит название аспекта от движка к нашему enum
func NormalizeAspectType(s string) AspectType {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "_", "-")
	v = strings.ReplaceAll(v, " ", "-")
	switch v {
	case "semisextile":
		return AspectSemiSextile
	case "semisquare":
		return AspectSemiSquare
	case "inconjunct":
		return AspectQuincunx
	}
	return AspectType(v)
}

// Planets порядок планет в выводе
var Planets = []string{"Sun", "Moon", "Mercury", "Venus", "Mars", "Jupiter", "Saturn", "Uranus", "Neptune", "Pluto"}

// PlanetPlacement положение планеты в карте
type PlanetPlacement struct {
	Name       string  `json:"name"`
	Sign       string  `json:"sign"`
	Degree     float64 `json:"degree"`
	AbsDegree  float64 `json:"abs_degree"`
	House      int     `json:"house,omitempty"`
	Retrograde bool    `json:"retrograde,omitempty"`
}

// HouseCusp куспид дома
type HouseCusp struct {
	House  int     `json:"house"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

// Aspect аспект между двумя точками карты
type Aspect struct {
	Planet1 string     `json:"planet1"`
	Planet2 string     `json:"planet2"`
	Type    AspectType `json:"type"`
	Orb     float64    `json:"orb"`
}

func (a Aspect) String() string {
	return fmt.Sprintf("%s %s %s", a.Planet1, a.Type, a.Planet2)
}

// Angle угол карты (асцендент, MC)
type Angle struct {
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

// ChartData единая схема карты на границе с движком
type ChartData struct {
	Planets     []PlanetPlacement `json:"planets"`
	Houses      []HouseCusp       `json:"houses,omitempty"`
	Aspects     []Aspect          `json:"aspects,omitempty"`
	Ascendant   *Angle            `json:"ascendant,omitempty"`
	Midheaven   *Angle            `json:"midheaven,omitempty"`
	HouseSystem string            `json:"house_system,omitempty"`
	ZodiacType  string            `json:"zodiac_type,omitempty"`
}

// Planet ищет планету по имени без учёта регистра
func (c *ChartData) Planet(name string) (PlanetPlacement, bool) {
	if c == nil {
		return PlanetPlacement{}, false
	}
	for _, p := range c.Planets {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return PlanetPlacement{}, false
}

// PlacementsInSign группирует планеты по знакам, сохраняя порядок карты
func (c *ChartData) PlacementsInSign() map[string][]string {
	out := make(map[string][]string)
	if c == nil {
		return out
	}
	for _, p := range c.Planets {
		if p.Sign == "" {
			continue
		}
		out[p.Sign] = append(out[p.Sign], p.Name)
	}
	return out
}

func (c *ChartData) Clone() *ChartData {
	if c == nil {
		return nil
	}
	out := &ChartData{
		Planets:     append([]PlanetPlacement(nil), c.Planets...),
		Houses:      append([]HouseCusp(nil), c.Houses...),
		Aspects:     append([]Aspect(nil), c.Aspects...),
		HouseSystem: c.HouseSystem,
		ZodiacType:  c.ZodiacType,
	}
	if c.Ascendant != nil {
		v := *c.Ascendant
		out.Ascendant = &v
	}
	if c.Midheaven != nil {
		v := *c.Midheaven
		out.Midheaven = &v
	}
	return out
}

// Value сериализует карту в JSONB
func (c *ChartData) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan читает карту из JSONB
func (c *ChartData) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported chart data type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, c)
}

// TransitData транзиты к натальной карте на дату
type TransitData struct {
	Date                time.Time `json:"date"`
	Aspects             []Aspect  `json:"aspects"`
	SignificantTransits []string  `json:"significant_transits"`
}

// SynastryData совместимость двух карт
type SynastryData struct {
	Aspects            []Aspect `json:"aspects"`
	CompatibilityScore int      `json:"compatibility_score"`
	Strengths          []string `json:"strengths"`
	Challenges         []string `json:"challenges"`
	Approximate        bool     `json:"approximate"`
	ApproximationNote  string   `json:"approximation_note,omitempty"`
}

// PartnerBirth данные партнёра для синастрии
type PartnerBirth struct {
	Date      time.Time
	Time      *ClockTime
	Latitude  float64
	Longitude float64
	Timezone  string
	// Approximate координаты не известны и подставлены (0,0)
	Approximate bool
}

// MoonPhase фаза Луны на дату
type MoonPhase struct {
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Angle        float64   `json:"angle"`
	Illumination float64   `json:"illumination"`
	MoonSign     string    `json:"moon_sign,omitempty"`
}

// RetrogradePlanet ретроградная планета и её значение
type RetrogradePlanet struct {
	Name       string `json:"name"`
	Sign       string `json:"sign"`
	Meaning    string `json:"meaning"`
	NatalHouse int    `json:"natal_house,omitempty"`
}

// RetrogradeReport ретроградные и директные планеты на дату
type RetrogradeReport struct {
	Date    time.Time          `json:"date"`
	Planets []RetrogradePlanet `json:"planets"`
	Direct  []string           `json:"direct"`
}

// SolarReturn карта соляра на год
type SolarReturn struct {
	Year      int        `json:"year"`
	Date      time.Time  `json:"date"`
	Chart     *ChartData `json:"chart"`
	SunHouse  int        `json:"sun_house,omitempty"`
	MoonSign  string     `json:"moon_sign,omitempty"`
	Ascendant string     `json:"ascendant,omitempty"`
	Themes    []string   `json:"themes"`
}

// DignityKind вид достоинства планеты
type DignityKind string

const (
	DignityDomicile  DignityKind = "Domicile"
	DignityExalted   DignityKind = "Exalted"
	DignityDetriment DignityKind = "Detriment"
	DignityFall      DignityKind = "Fall"
	DignityPeregrine DignityKind = ""
)

// DignityStrength итоговая сила планеты
type DignityStrength string

const (
	StrengthStrong  DignityStrength = "strong"
	StrengthWeak    DignityStrength = "weak"
	StrengthNeutral DignityStrength = "neutral"
)

// PlanetDignity достоинство одной планеты
type PlanetDignity struct {
	Planet   string          `json:"planet"`
	Sign     string          `json:"sign"`
	Dignity  DignityKind     `json:"dignity,omitempty"`
	Strength DignityStrength `json:"strength"`
	Meaning  string          `json:"meaning,omitempty"`
}

// DignityReport достоинства всех планет карты
type DignityReport struct {
	Placements []PlanetDignity `json:"placements"`
}

// ByStrength отбирает планеты с заданной силой
func (r DignityReport) ByStrength(s DignityStrength) []PlanetDignity {
	var out []PlanetDignity
	for _, p := range r.Placements {
		if p.Strength == s {
			out = append(out, p)
		}
	}
	return out
}

// PatternKind вид конфигурации аспектов
type PatternKind string

const (
	PatternGrandTrine PatternKind = "Grand Trine"
	PatternTSquare    PatternKind = "T-Square"
	PatternStellium   PatternKind = "Stellium"
)

// AspectPattern найденная конфигурация
type AspectPattern struct {
	Kind        PatternKind `json:"kind"`
	Planets     []string    `json:"planets"`
	Apex        string      `json:"apex,omitempty"`
	Sign        string      `json:"sign,omitempty"`
	Element     string      `json:"element,omitempty"`
	Description string      `json:"description"`
}

// AspectPatternReport все конфигурации карты
type AspectPatternReport struct {
	Patterns []AspectPattern `json:"patterns"`
}
