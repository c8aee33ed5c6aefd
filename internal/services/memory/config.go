package memory

import "time"

type Config struct {
	ExtractionDelaySec   int     `envconfig:"EXTRACTION_DELAY" default:"300"`
	ExtractionTimeoutSec int     `envconfig:"EXTRACTION_TIMEOUT" default:"60"`
	MinConfidence        float64 `envconfig:"MIN_CONFIDENCE" default:"0.5"`
	SearchLimit          int     `envconfig:"SEARCH_LIMIT" default:"5"`
	OverlapThreshold     float64 `envconfig:"OVERLAP_THRESHOLD" default:"0.7"`
	ExportPrefix         string  `envconfig:"EXPORT_PREFIX" default:"exports"`
	ExportLinkTTLMin     int     `envconfig:"EXPORT_LINK_TTL" default:"60"`
}

func (c *Config) extractionDelay() time.Duration {
	if c.ExtractionDelaySec <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.ExtractionDelaySec) * time.Second
}

func (c *Config) extractionTimeout() time.Duration {
	if c.ExtractionTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.ExtractionTimeoutSec) * time.Second
}

func (c *Config) linkTTL() time.Duration {
	if c.ExportLinkTTLMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.ExportLinkTTLMin) * time.Minute
}

func (c *Config) threshold() float64 {
	if c.OverlapThreshold <= 0 || c.OverlapThreshold > 1 {
		return 0.7
	}
	return c.OverlapThreshold
}
