// Package mcpserver отдаёт инструменты агента внешним агентам по MCP через stdio
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/usecases/tools"
)

const (
	serverName = "astro-agent"
	Version    = "1.0.0"
)

const instructions = "Astrology tools for a single user. Natal chart tools need name, gender, birth date " +
	"and birth location saved first with update_user_profile; check get_onboarding_status when unsure."

// UserLocker блокировка пользователя, общая с ходами диалога
type UserLocker interface {
	LockUser(userID string) func()
}

// Bridge вызывает инструменты реестра от имени одного пользователя.
// Вызовы выполняются по одному и не пересекаются с ходами диалога того же пользователя
type Bridge struct {
	registry       *tools.Registry
	profiles       service.IProfileService
	locks          UserLocker
	userID         string
	conversationID string
	mu             sync.Mutex
	now            func() time.Time
	Log            *slog.Logger
}

// NewBridge locks может быть nil, тогда вызовы сериализуются только внутри моста
func NewBridge(registry *tools.Registry, profiles service.IProfileService, locks UserLocker, userID string, log *slog.Logger) *Bridge {
	return &Bridge{
		registry:       registry,
		profiles:       profiles,
		locks:          locks,
		userID:         userID,
		conversationID: "mcp-" + uuid.NewString(),
		now:            time.Now,
		Log:            log,
	}
}

// NewServer MCP сервер со всеми инструментами реестра
func NewServer(b *Bridge) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range b.registry.Tools() {
		s.AddTool(Definition(t), b.Handler(t.Name))
	}
	return s
}

// Serve блокируется на stdio до закрытия входа
func Serve(b *Bridge) error {
	b.Log.Info("mcp server starting", "user_id", b.userID, "tools", len(b.registry.Tools()))
	return server.ServeStdio(NewServer(b))
}

// Definition описание инструмента реестра в терминах MCP
func Definition(t *tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, p := range t.Params {
		props := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			props = append(props, mcp.Required())
		}
		if len(p.Enum) > 0 {
			props = append(props, mcp.Enum(p.Enum...))
		}
		switch p.Type {
		case tools.TypeBoolean:
			opts = append(opts, mcp.WithBoolean(p.Name, props...))
		case tools.TypeNumber, tools.TypeInteger:
			opts = append(opts, mcp.WithNumber(p.Name, props...))
		default:
			opts = append(opts, mcp.WithString(p.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// Handler ошибки инструментов уже текст, поэтому результат всегда успешный
func (b *Bridge) Handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		unlock := b.lock()
		defer unlock()

		profile, err := b.profiles.GetOrCreate(ctx, b.userID)
		if err != nil {
			b.Log.Error("failed to load profile", "error", err, "user_id", b.userID)
			return mcp.NewToolResultError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}
		tc := &tools.TurnContext{
			UserID:         b.userID,
			ConversationID: b.conversationID,
			Profile:        profile,
			Now:            b.now(),
		}
		result := b.registry.Execute(ctx, tc, domain.ToolCall{
			ID:        uuid.NewString(),
			Name:      name,
			Arguments: req.GetArguments(),
		})
		return mcp.NewToolResultText(result), nil
	}
}

func (b *Bridge) lock() func() {
	if b.locks != nil {
		return b.locks.LockUser(b.userID)
	}
	b.mu.Lock()
	return b.mu.Unlock
}
