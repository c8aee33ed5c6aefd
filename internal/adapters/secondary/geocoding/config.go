package geocoding

import "time"

type Config struct {
	NominatimURL   string `envconfig:"NOMINATIM_URL" default:"https://nominatim.openstreetmap.org/search"`
	GoogleURL      string `envconfig:"GOOGLE_URL" default:"https://maps.googleapis.com/maps/api/geocode/json"`
	GoogleTzURL    string `envconfig:"GOOGLE_TZ_URL" default:"https://maps.googleapis.com/maps/api/timezone/json"`
	GoogleAPIKey   string `envconfig:"GOOGLE_API_KEY"`
	UserAgent      string `envconfig:"USER_AGENT" default:"Archon-AI-Astrology/1.0"`
	TimeoutSec     int    `envconfig:"TIMEOUT" default:"10"`
	MaxAttempts    int    `envconfig:"MAX_ATTEMPTS" default:"3"`
	BackoffSec     int    `envconfig:"BACKOFF" default:"2"`
	RequestsPerSec int    `envconfig:"RPS" default:"1"` // политика Nominatim: не чаще 1 запроса в секунду
}

func (c *Config) timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c *Config) attempts() int {
	if c.MaxAttempts <= 0 {
		return 1
	}
	return c.MaxAttempts
}
