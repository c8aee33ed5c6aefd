package app

import (
	"context"
	"fmt"
	"io"

	"log/slog"

	"github.com/admin/astro-agent/internal/adapters/primary/cli"
	mcpserver "github.com/admin/astro-agent/internal/adapters/primary/mcp"
	"github.com/admin/astro-agent/internal/pkg/logger"
)

type App struct {
	Name string
	Cfg  *Config
	Log  *slog.Logger
}

func New(name string, cfg *Config) *App {
	return &App{
		Name: name,
		Cfg:  cfg,
		Log:  logger.New(name, cfg.Log),
	}
}

// Run HTTP/WebSocket сервер, Kafka и планировщик до отмены контекста
func (a *App) Run(ctx context.Context) error {
	a.Log.Info("running astro-agent")

	deps, err := a.initDependencies(ctx)
	if err != nil {
		return err
	}
	deps.HTTPServer = a.initHTTP(deps)
	deps.KafkaConsumers = a.initConsumers(deps)
	deps.JobScheduler = a.initJobScheduler(deps)

	return a.runServices(ctx, deps)
}

// Chat интерактивная сессия в терминале
func (a *App) Chat(ctx context.Context, userID string, in io.Reader, out io.Writer) error {
	deps, err := a.initDependencies(ctx)
	if err != nil {
		return err
	}
	defer a.close(deps)

	return cli.New(deps.Agent, deps.Profiles, deps.Memory, in, out, a.Log).Run(ctx, userID)
}

// MCP инструменты агента по stdio от имени одного пользователя
func (a *App) MCP(ctx context.Context, userID string) error {
	deps, err := a.initDependencies(ctx)
	if err != nil {
		return err
	}
	defer a.close(deps)

	return mcpserver.Serve(mcpserver.NewBridge(deps.Registry, deps.Profiles, deps.Agent, userID, a.Log))
}

// Consolidate разовая консолидация памяти одного пользователя или всех
func (a *App) Consolidate(ctx context.Context, userID string) (int, error) {
	deps, err := a.initDependencies(ctx)
	if err != nil {
		return 0, err
	}
	defer a.close(deps)

	if userID != "" {
		removed, err := deps.Memory.Consolidate(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("failed to consolidate memories: %w", err)
		}
		return removed, nil
	}
	return deps.Memory.ConsolidateAll(ctx)
}
