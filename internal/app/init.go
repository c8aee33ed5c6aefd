package app

import (
	"context"
	"fmt"
	"net/http"

	server "github.com/admin/astro-agent/internal/adapters/primary/http"
	apiController "github.com/admin/astro-agent/internal/adapters/primary/http/controllers/api"
	chatController "github.com/admin/astro-agent/internal/adapters/primary/http/controllers/chat"
	healthcheckController "github.com/admin/astro-agent/internal/adapters/primary/http/controllers/healthcheck"
	kafkaConsumerAdapter "github.com/admin/astro-agent/internal/adapters/primary/kafka"
	kafkaHandlers "github.com/admin/astro-agent/internal/adapters/primary/kafka/handlers"
	alerterAdapter "github.com/admin/astro-agent/internal/adapters/secondary/alerter"
	"github.com/admin/astro-agent/internal/adapters/secondary/chartApi"
	"github.com/admin/astro-agent/internal/adapters/secondary/embeddings"
	"github.com/admin/astro-agent/internal/adapters/secondary/geocoding"
	kafkaAdapter "github.com/admin/astro-agent/internal/adapters/secondary/kafka"
	"github.com/admin/astro-agent/internal/adapters/secondary/llm"
	"github.com/admin/astro-agent/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/astro-agent/internal/adapters/secondary/storage/pg"
	redisAdapter "github.com/admin/astro-agent/internal/adapters/secondary/storage/redis"
	s3Adapter "github.com/admin/astro-agent/internal/adapters/secondary/storage/s3"
	"github.com/admin/astro-agent/internal/ports/cache"
	kafkaPorts "github.com/admin/astro-agent/internal/ports/kafka"
	"github.com/admin/astro-agent/internal/ports/repository"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/ports/storage"
	memoryRepo "github.com/admin/astro-agent/internal/repository/memory"
	profileRepo "github.com/admin/astro-agent/internal/repository/profile"
	usageRepo "github.com/admin/astro-agent/internal/repository/usage"
	alerterService "github.com/admin/astro-agent/internal/services/alerter"
	"github.com/admin/astro-agent/internal/services/auth"
	chartService "github.com/admin/astro-agent/internal/services/chart"
	jobScheduler "github.com/admin/astro-agent/internal/services/jobs"
	memoryService "github.com/admin/astro-agent/internal/services/memory"
	usageService "github.com/admin/astro-agent/internal/services/usage"
	"github.com/admin/astro-agent/internal/usecases/agent"
	profileUsecase "github.com/admin/astro-agent/internal/usecases/profile"
	"github.com/admin/astro-agent/internal/usecases/tools"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	DB             *sqlx.DB
	Redis          *redis.Client
	Cache          cache.Cache
	HTTPServer     *http.Server
	KafkaProducers map[string]*kafkaAdapter.Producer
	KafkaConsumers map[string]*kafkaConsumerAdapter.Consumer
	JobScheduler   *jobScheduler.Scheduler
	Alerter        service.IAlerterService

	Charts   *chartService.Service
	Profiles *profileUsecase.Service
	Memory   *memoryService.Service
	Registry *tools.Registry
	Agent    *agent.Orchestrator
	Auth     *auth.Service
}

// initDependencies собирает ядро агента; транспорт (HTTP, Kafka consumers, джобы) подключает вызывающий
func (a *App) initDependencies(ctx context.Context) (*Dependencies, error) {
	deps := &Dependencies{
		KafkaProducers: make(map[string]*kafkaAdapter.Producer),
		KafkaConsumers: make(map[string]*kafkaConsumerAdapter.Consumer),
	}

	repos, err := a.initRepositories(ctx, deps)
	if err != nil {
		return nil, err
	}

	deps.Cache = a.initCache(deps)
	exports := a.initExports()
	events := a.initProducers(deps)

	embedder, err := a.initEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	llmClient, err := llm.New(ctx, a.Cfg.LLM, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init llm client: %w", err)
	}

	deps.Charts = chartService.New(chartApi.NewClient(a.Cfg.ChartAPI, a.Log), deps.Cache, a.Log)
	geocoder := geocoding.NewClient(a.Cfg.Geocoding, a.Log)
	deps.Profiles = profileUsecase.New(repos.Profile, deps.Charts, geocoder, a.Log)

	deps.Memory = memoryService.New(memoryService.Deps{
		Repo:      repos.Memory,
		Embedder:  embedder,
		Extractor: memoryService.NewLLMExtractor(llmClient, a.Log),
		Profiles:  repos.Profile,
		Usage:     repos.Usage,
		Events:    events,
		Exports:   exports,
	}, a.Cfg.Memory, a.Log)

	deps.Registry, err = tools.NewDefault(tools.Deps{
		Profiles: deps.Profiles,
		Charts:   deps.Charts,
		Memory:   deps.Memory,
		Geocoder: geocoder,
	}, a.Cfg.Agent.ToolTimeout(), a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tool registry: %w", err)
	}

	tracker := usageService.New(repos.Usage, a.Cfg.Agent.DailyCostLimitUSD, a.Log)
	deps.Agent = agent.New(llmClient, deps.Registry, deps.Profiles, deps.Memory, tracker, a.Cfg.Agent, a.Log)
	deps.Auth, err = auth.New(a.Cfg.Auth, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	// Alerter опциональный
	if a.Cfg.Alerter.Enabled() {
		deps.Alerter = alerterService.New(alerterAdapter.NewClient(a.Cfg.Alerter, a.Log), a.Log)
	}

	return deps, nil
}

// repositories содержит инициализированные репозитории
type repositories struct {
	Profile repository.IProfileRepo
	Memory  repository.IMemoryRepo
	Usage   repository.IUsageRepo
}

// initRepositories Postgres, если задан хост, иначе хранилища в памяти процесса
func (a *App) initRepositories(ctx context.Context, deps *Dependencies) (*repositories, error) {
	if !a.Cfg.Postgres.Enabled() {
		a.Log.Warn("postgres is not configured, using in-memory storage")
		return &repositories{
			Profile: inmemory.NewProfileStore(),
			Memory:  inmemory.NewMemoryStore(),
			Usage:   inmemory.NewUsageStore(),
		}, nil
	}

	db, err := a.initPostgres(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}
	deps.DB = db

	persistenceLayer := pg.NewDB(db, a.Cfg.Postgres.SlowQuery(), a.Log)
	return &repositories{
		Profile: profileRepo.New(persistenceLayer, a.Log),
		Memory:  memoryRepo.New(persistenceLayer, a.Log),
		Usage:   usageRepo.New(persistenceLayer, a.Log),
	}, nil
}

// initPostgres инициализирует подключение к PostgreSQL и запускает миграции
func (a *App) initPostgres(ctx context.Context) (*sqlx.DB, error) {
	db, err := a.Cfg.Postgres.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	a.Log.Info("postgres connected successfully")

	if err := pg.RunMigrations(ctx, db, a.Log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// initCache Redis, если доступен, иначе кэш в памяти процесса
func (a *App) initCache(deps *Dependencies) cache.Cache {
	if a.Cfg.Redis.Enabled() {
		client, err := a.Cfg.Redis.NewConnection()
		if err == nil {
			deps.Redis = client
			a.Log.Info("redis cache connected successfully")
			return redisAdapter.NewClient(client, a.Cfg.Redis.KeyPrefix)
		}
		a.Log.Warn("failed to init redis cache, continuing with in-memory cache", "error", err)
	}
	return inmemory.NewCache()
}

// initExports S3 для выгрузки данных пользователя, nil выключает выгрузку
func (a *App) initExports() storage.IS3Client {
	if !a.Cfg.S3.Enabled() {
		return nil
	}
	client, err := a.Cfg.S3.NewClient()
	if err != nil {
		a.Log.Warn("failed to init s3, data export disabled", "error", err)
		return nil
	}
	a.Log.Info("s3 connected successfully", "bucket", a.Cfg.S3.Bucket)
	return s3Adapter.NewClient(client, a.Cfg.S3.Bucket, a.Log)
}

// initProducers producer событий памяти; nil, если топик не настроен
func (a *App) initProducers(deps *Dependencies) kafkaPorts.IEventPublisher {
	cfg := a.Cfg.Kafka.Find(kafkaAdapter.TopicMemoryEvents)
	if cfg == nil || cfg.Topic == "" {
		return nil
	}
	producer, err := kafkaAdapter.NewProducer(cfg, a.Log)
	if err != nil {
		a.Log.Warn("failed to create kafka producer", "error", err, "name", kafkaAdapter.TopicMemoryEvents)
		return nil
	}
	deps.KafkaProducers[kafkaAdapter.TopicMemoryEvents] = producer
	return producer
}

// initEmbedder GenAI при наличии ключа, иначе локальный хэширующий векторизатор
func (a *App) initEmbedder(ctx context.Context) (service.IEmbedder, error) {
	if a.Cfg.Embeddings.ApiKey == "" {
		a.Log.Warn("embeddings api key is not set, using hashing embedder")
		return embeddings.NewHashingEmbedder(a.Cfg.Embeddings.Dimensions), nil
	}
	embedder, err := embeddings.NewGenAIEmbedder(ctx, a.Cfg.Embeddings, a.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}
	return embedder, nil
}

// initConsumers consumer запросов на удаление данных
func (a *App) initConsumers(deps *Dependencies) map[string]*kafkaConsumerAdapter.Consumer {
	for _, kafkaCfg := range a.Cfg.Kafka.List {
		if kafkaCfg.Config == nil || kafkaCfg.Config.ConsumerGroup == "" {
			continue
		}

		handler := a.createHandlerForTopic(kafkaCfg.Name, deps)
		if handler == nil {
			a.Log.Warn("no handler for kafka topic, skipping consumer", "name", kafkaCfg.Name)
			continue
		}

		consumer, err := kafkaConsumerAdapter.NewConsumer(kafkaCfg.Config, handler, a.Log)
		if err != nil {
			a.Log.Warn("failed to create kafka consumer", "error", err, "name", kafkaCfg.Name)
			continue
		}
		deps.KafkaConsumers[kafkaCfg.Name] = consumer
	}
	return deps.KafkaConsumers
}

// createHandlerForTopic создаёт handler для указанного топика Kafka
func (a *App) createHandlerForTopic(topicName string, deps *Dependencies) kafkaPorts.MessageHandler {
	switch topicName {
	case kafkaAdapter.TopicErasureRequests:
		return kafkaHandlers.NewErasureHandler(deps.Memory, a.Log)
	default:
		return nil
	}
}

// initHTTP инициализирует HTTP сервер и контроллеры
func (a *App) initHTTP(deps *Dependencies) *http.Server {
	pingers := map[string]healthcheckController.Pinger{}
	if deps.DB != nil {
		pingers["postgres"] = deps.DB
	}
	if deps.Redis != nil {
		pingers["redis"] = healthcheckController.PingerFunc(func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		})
	}

	controllers := []server.Controller{
		healthcheckController.New(pingers, a.Log),
		chatController.New(deps.Agent, deps.Auth, a.Cfg.Chat, a.Log),
		apiController.New(deps.Auth, deps.Auth, deps.Profiles, deps.Memory, deps.Memory, a.Log),
	}

	return server.NewHTTPServer(a.Cfg.Server, a.Log, controllers...)
}

// initJobScheduler инициализирует планировщик джоб
func (a *App) initJobScheduler(deps *Dependencies) *jobScheduler.Scheduler {
	scheduler := jobScheduler.NewScheduler(a.Log, deps.Alerter)

	scheduler.Register(jobScheduler.NewPositionsUpdater(deps.Charts, a.Log))
	scheduler.Register(jobScheduler.NewMemoryConsolidator(deps.Memory, a.Log))
	a.Log.Info("jobs registered", "jobs", []string{"positions_updater", "memory_consolidator"})

	return scheduler
}

// close освобождает ресурсы вне режима сервера
func (a *App) close(deps *Dependencies) {
	deps.Memory.Close()

	for name, producer := range deps.KafkaProducers {
		if err := producer.Close(); err != nil {
			a.Log.Error("failed to close kafka producer", "error", err, "name", name)
		}
	}

	if err := deps.Cache.Close(); err != nil {
		a.Log.Error("failed to close cache", "error", err)
	}

	if deps.DB != nil {
		if err := deps.DB.Close(); err != nil {
			a.Log.Error("failed to close database", "error", err)
		}
	}
}
