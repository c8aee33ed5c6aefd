package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSign(t *testing.T) {
	assert.Equal(t, "Aries", NormalizeSign("Ari"))
	assert.Equal(t, "Sagittarius", NormalizeSign("SAGITTARIUS"))
	assert.Equal(t, "Nowhere", NormalizeSign("Nowhere"))
	assert.Equal(t, 11, SignIndex("pis"))
	assert.Equal(t, -1, SignIndex("x"))
}

func TestPlacementLongitude(t *testing.T) {
	assert.InDelta(t, 84.5, PlanetPlacement{Sign: "Gemini", Degree: 24.5}.Longitude(), 1e-9)
	assert.InDelta(t, 10.0, PlanetPlacement{Sign: "Gemini", AbsDegree: 370}.Longitude(), 1e-9)
	assert.Equal(t, "Pisces", SignAt(-1))
}

func TestHouseOf(t *testing.T) {
	chart := &ChartData{}
	// равнодомная карта от 15° Рака: дом 9 пересекает 0° Овна
	for i := 0; i < 12; i++ {
		lon := NormalizeDegrees(105 + float64(i)*30)
		chart.Houses = append(chart.Houses, HouseCusp{House: i + 1, Sign: SignAt(lon), Degree: lon - float64(SignIndex(SignAt(lon)))*30})
	}
	assert.Equal(t, 1, chart.HouseOf(110))
	assert.Equal(t, 9, chart.HouseOf(0))
	assert.Equal(t, 10, chart.HouseOf(20))
	assert.Equal(t, 9, chart.HouseOf(350))
	assert.Equal(t, 0, (&ChartData{}).HouseOf(10))
}

func TestElement(t *testing.T) {
	assert.Equal(t, "Fire", Element("Leo"))
	assert.Equal(t, "Water", Element("Pisces"))
	assert.Equal(t, "Unknown", Element(""))
}

func TestAspectType(t *testing.T) {
	assert.True(t, NormalizeAspectType("Trine").IsMajor())
	assert.Equal(t, AspectSemiSextile, NormalizeAspectType("Semi Sextile"))
	assert.False(t, AspectQuincunx.IsMajor())
}
