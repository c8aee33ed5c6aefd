package embeddings

import "time"

type Config struct {
	ApiKey     string `envconfig:"API_KEY"`
	Model      string `envconfig:"MODEL" default:"gemini-embedding-001"`
	Dimensions int    `envconfig:"DIMENSIONS" default:"768"`
	TimeoutSec int    `envconfig:"TIMEOUT" default:"30"`
}

func (c *Config) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
