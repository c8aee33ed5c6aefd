package llm

import "time"

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider    string  `envconfig:"PROVIDER" default:"openai"`
	BaseURL     string  `envconfig:"BASE_URL" default:"https://api.openai.com/v1"`
	ApiKey      string  `envconfig:"API_KEY"`
	Model       string  `envconfig:"MODEL" default:"gpt-4o-mini"`
	TimeoutSec  int     `envconfig:"TIMEOUT" default:"60"`
	MaxRetries  int     `envconfig:"MAX_RETRIES" default:"3"`
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens   int     `envconfig:"MAX_TOKENS" default:"1024"`
}

func (c *Config) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
