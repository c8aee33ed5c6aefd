package domain

import (
	"math"
	"strings"
)

// ZodiacSigns знаки в порядке от 0° Овна
var ZodiacSigns = []string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

var signAbbreviations = map[string]string{
	"ari": "Aries", "tau": "Taurus", "gem": "Gemini", "can": "Cancer",
	"leo": "Leo", "vir": "Virgo", "lib": "Libra", "sco": "Scorpio",
	"sag": "Sagittarius", "cap": "Capricorn", "aqu": "Aquarius", "pis": "Pisces",
}

// NormalizeSign приводит "ari", "ARIES" и т.п. к полному названию знака
func NormalizeSign(s string) string {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) >= 3 {
		if full, ok := signAbbreviations[v[:3]]; ok {
			return full
		}
	}
	return s
}

// SignIndex номер знака 0..11 или -1
func SignIndex(sign string) int {
	sign = NormalizeSign(sign)
	for i, s := range ZodiacSigns {
		if s == sign {
			return i
		}
	}
	return -1
}

// SignAt знак по эклиптической долготе
func SignAt(longitude float64) string {
	return ZodiacSigns[int(NormalizeDegrees(longitude)/30)%12]
}

// NormalizeDegrees приводит угол к [0,360)
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// Longitude абсолютная долгота планеты, считается из знака, если движок её не прислал
func (p PlanetPlacement) Longitude() float64 {
	if p.AbsDegree != 0 {
		return NormalizeDegrees(p.AbsDegree)
	}
	if i := SignIndex(p.Sign); i >= 0 {
		return float64(i)*30 + p.Degree
	}
	return p.Degree
}

// Longitude абсолютная долгота куспида
func (h HouseCusp) Longitude() float64 {
	if i := SignIndex(h.Sign); i >= 0 {
		return float64(i)*30 + h.Degree
	}
	return h.Degree
}

// Element стихия знака
func Element(sign string) string {
	switch NormalizeSign(sign) {
	case "Aries", "Leo", "Sagittarius":
		return "Fire"
	case "Taurus", "Virgo", "Capricorn":
		return "Earth"
	case "Gemini", "Libra", "Aquarius":
		return "Air"
	case "Cancer", "Scorpio", "Pisces":
		return "Water"
	}
	return "Unknown"
}

// HouseOf дом карты, в который попадает долгота, 0 если куспидов нет
func (c *ChartData) HouseOf(longitude float64) int {
	if c == nil || len(c.Houses) != 12 {
		return 0
	}
	longitude = NormalizeDegrees(longitude)
	for i := 0; i < 12; i++ {
		start := c.Houses[i].Longitude()
		end := c.Houses[(i+1)%12].Longitude()
		if start <= end {
			if longitude >= start && longitude < end {
				return c.Houses[i].House
			}
		} else if longitude >= start || longitude < end {
			return c.Houses[i].House
		}
	}
	return 0
}
