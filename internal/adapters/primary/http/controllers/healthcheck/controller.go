package healthcheckController

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger зависимость, без которой сервис не готов принимать трафик
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc адаптер для клиентов без PingContext, например redis
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

type HealthCheckController struct {
	deps map[string]Pinger
	log  *slog.Logger
}

// New deps по имени, nil значения пропускаются: in-memory режим всегда готов
func New(deps map[string]Pinger, log *slog.Logger) *HealthCheckController {
	active := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthCheckController{
		deps: active,
		log:  log,
	}
}

func (c *HealthCheckController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.health)
	r.GET("/ready", c.ready)
}

// health базовая проверка (всегда возвращает 200)
func (c *HealthCheckController) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "astro-agent",
	})
}

// ready пингует все зависимости
func (c *HealthCheckController) ready(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	for name, dep := range c.deps {
		if err := dep.PingContext(pingCtx); err != nil {
			c.log.Error("dependency not ready", "dependency", name, "error", err)
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  name + " unavailable",
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
