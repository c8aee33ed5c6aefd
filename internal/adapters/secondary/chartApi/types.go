package chartApi

// BirthData момент и место для расчёта
type BirthData struct {
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Day       int     `json:"day"`
	Hour      int     `json:"hour"`
	Minute    int     `json:"minute"`
	Second    int     `json:"second,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// Person субъект карты
type Person struct {
	Name      string    `json:"name"`
	BirthData BirthData `json:"birth_data"`
}

// ChartOptions опции расчёта карты
type ChartOptions struct {
	HouseSystem  string   `json:"house_system"`  // "P" для Плацидуса
	ZodiacType   string   `json:"zodiac_type"`   // "Tropic" для тропического
	ActivePoints []string `json:"active_points"` // ["Sun", "Moon", ...]
	Precision    int      `json:"precision"`
}

// NatalChartRequest запрос натальной карты
type NatalChartRequest struct {
	Subject Person       `json:"subject"`
	Options ChartOptions `json:"options"`
}

// NatalPositions натальные положения, к которым считаются аспекты
type NatalPositions struct {
	Planets []PlanetPosition `json:"planets"`
}

// TransitsRequest аспекты транзитных планет к натальной карте
type TransitsRequest struct {
	Natal   NatalPositions `json:"natal"`
	Transit Person         `json:"transit_subject"`
	Options ChartOptions   `json:"options"`
}

// SynastryRequest межкартовые аспекты с партнёром
type SynastryRequest struct {
	Natal   NatalPositions `json:"natal"`
	Partner Person         `json:"partner_subject"`
	Options ChartOptions   `json:"options"`
}

// PositionsRequest положения планет на момент времени
type PositionsRequest struct {
	Subject Person       `json:"subject"`
	Options ChartOptions `json:"options"`
}

// Response общий конверт ответа движка
type Response struct {
	Status    string     `json:"status"`
	Code      int        `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
	Data      *ChartBody `json:"data,omitempty"`
}

// ChartBody данные ответа (используется только для парсинга)
type ChartBody struct {
	Planets   []PlanetPosition `json:"planets,omitempty"`
	Houses    []HousePosition  `json:"houses,omitempty"`
	Aspects   []Aspect         `json:"aspects,omitempty"`
	Ascendant *AnglePosition   `json:"ascendant,omitempty"`
	Midheaven *AnglePosition   `json:"midheaven,omitempty"`
}

// PlanetPosition позиция планеты
type PlanetPosition struct {
	Name       string  `json:"name"`
	Sign       string  `json:"sign"`
	Degree     float64 `json:"degree"`
	AbsPos     float64 `json:"abs_pos"`
	House      int     `json:"house,omitempty"`
	Retrograde bool    `json:"retrograde,omitempty"`
}

// HousePosition куспид дома
type HousePosition struct {
	House  int     `json:"house"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

// AnglePosition асцендент или MC
type AnglePosition struct {
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

// Aspect аспект между точками
type Aspect struct {
	Planet1 string  `json:"planet1"`
	Planet2 string  `json:"planet2"`
	Aspect  string  `json:"aspect"`
	Orb     float64 `json:"orb"`
}
