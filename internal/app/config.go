package app

import (
	"fmt"

	server "github.com/admin/astro-agent/internal/adapters/primary/http"
	chatController "github.com/admin/astro-agent/internal/adapters/primary/http/controllers/chat"
	alerterAdapter "github.com/admin/astro-agent/internal/adapters/secondary/alerter"
	"github.com/admin/astro-agent/internal/adapters/secondary/chartApi"
	"github.com/admin/astro-agent/internal/adapters/secondary/embeddings"
	"github.com/admin/astro-agent/internal/adapters/secondary/geocoding"
	kafkaAdapter "github.com/admin/astro-agent/internal/adapters/secondary/kafka"
	"github.com/admin/astro-agent/internal/adapters/secondary/llm"
	"github.com/admin/astro-agent/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/astro-agent/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/astro-agent/internal/adapters/secondary/storage/s3"
	"github.com/admin/astro-agent/internal/pkg/logger"
	"github.com/admin/astro-agent/internal/services/auth"
	"github.com/admin/astro-agent/internal/services/memory"
	"github.com/admin/astro-agent/internal/usecases/agent"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config все внешние хранилища опциональны: пустой HOST включает реализацию в памяти процесса
type Config struct {
	Log        *logger.Config            `envconfig:"LOG"`
	Server     *server.Config            `envconfig:"APISERVER"`
	Chat       chatController.Config     `envconfig:"CHAT"`
	Auth       auth.Config               `envconfig:"AUTH"`
	Postgres   *pg.Config                `envconfig:"POSTGRES"`
	Redis      *redisAdapter.Config      `envconfig:"REDIS"`
	S3         *s3Adapter.Config         `envconfig:"S3"`
	ChartAPI   *chartApi.Config          `envconfig:"CHART_API"`
	Geocoding  *geocoding.Config         `envconfig:"GEOCODING"`
	LLM        *llm.Config               `envconfig:"LLM"`
	Embeddings *embeddings.Config        `envconfig:"EMBEDDINGS"`
	Agent      *agent.Config             `envconfig:"AGENT"`
	Memory     *memory.Config            `envconfig:"MEMORY"`
	Kafka      kafkaAdapter.KafkaConfigs `envconfig:"KAFKA"`
	Alerter    *alerterAdapter.Config    `envconfig:"ALERTER"`
}

func NewEnvConfig(envPrefix string) (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load("deployments/local/.env")

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	// Kafka загружаем вручную: envconfig не умеет определять размер слайса
	if err := cfg.Kafka.Load(envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}

	return cfg, nil
}
