package service

import (
	"context"

	"github.com/admin/astro-agent/internal/domain"
)

// IGeocoder поиск координат и таймзоны по названию места
type IGeocoder interface {
	// Geocode возвращает *domain.GeocodingError, если место не найдено
	Geocode(ctx context.Context, query string) (*domain.Location, error)
}
