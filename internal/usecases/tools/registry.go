package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
)

// Handler выполняет инструмент. Ошибка превращается в текст для модели
type Handler func(ctx context.Context, tc *TurnContext, args Args) (string, error)

// Tool описание инструмента для модели и его обработчик
type Tool struct {
	Name        string
	Description string
	// Action для текста ошибки: "I ran into a problem while <Action>"
	Action string
	Params []Param
	// RequiresChart инструмент работает только при посчитанной натальной карте
	RequiresChart bool
	Handler       Handler
}

// Registry набор инструментов агента
type Registry struct {
	tools   map[string]*Tool
	order   []string
	timeout time.Duration
	Log     *slog.Logger
}

func NewRegistry(timeout time.Duration, log *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		tools:   make(map[string]*Tool),
		timeout: timeout,
		Log:     log,
	}
}

// Register добавляет инструмент, имена уникальны
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" || t.Handler == nil {
		return fmt.Errorf("tool must have a name and a handler")
	}
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool %q is already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools инструменты в порядке регистрации
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions описания для модели в JSON Schema, в порядке регистрации
func (r *Registry) Definitions() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, 0, len(r.order))
	for _, t := range r.Tools() {
		properties := make(map[string]any, len(t.Params))
		required := []string{}
		for _, p := range t.Params {
			properties[p.Name] = p.schema()
			if p.Required {
				required = append(required, p.Name)
			}
		}
		out = append(out, domain.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		})
	}
	return out
}

// Execute выполняет вызов и всегда возвращает текст: ошибки, паники и таймауты
// превращаются в сообщение, которое модель может пересказать пользователю
func (r *Registry) Execute(ctx context.Context, tc *TurnContext, call domain.ToolCall) (result string) {
	tool, ok := r.tools[call.Name]
	if !ok {
		r.Log.Warn("unknown tool requested", "tool", call.Name, "user_id", tc.UserID)
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.", call.Name, strings.Join(r.order, ", "))
	}

	args, err := coerceArgs(tool.Params, call.Arguments)
	if err != nil {
		r.Log.Warn("invalid tool arguments", "tool", call.Name, "error", err, "user_id", tc.UserID)
		return fmt.Sprintf("Error: invalid arguments for %s: %s.", call.Name, err)
	}

	if tool.RequiresChart && !tc.Profile.HasChart() {
		return chartGateMessage(tc.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.Log.Error("tool panicked",
				"tool", call.Name,
				"panic", rec,
				"user_id", tc.UserID,
				"stack", string(debug.Stack()))
			result = failureMessage(tool.Action, "an unexpected internal error")
		}
	}()

	out, err := tool.Handler(ctx, tc, args)
	if err != nil {
		r.Log.Error("tool failed",
			"tool", call.Name,
			"error", err,
			"user_id", tc.UserID,
			"duration", time.Since(start))
		return failureMessage(tool.Action, reason(err))
	}

	r.Log.Debug("tool executed",
		"tool", call.Name,
		"user_id", tc.UserID,
		"duration", time.Since(start))
	return out
}

func failureMessage(action, reason string) string {
	return fmt.Sprintf("I'm sorry, I ran into a problem while %s: %s. Please try again or rephrase.", action, reason)
}

// reason понятная причина для модели; внутренние подробности остаются в логе
func reason(err error) string {
	var parseErr *domain.ParseError
	var geoErr *domain.GeocodingError
	switch {
	case errors.As(err, &parseErr):
		return parseErr.Error()
	case errors.As(err, &geoErr):
		return geoErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "the calculation took too long"
	case errors.Is(err, domain.ErrProfileNotFound):
		return "your profile could not be found, so nothing was saved"
	case errors.Is(err, domain.ErrChartNotReady):
		return "your natal chart is not available yet"
	case errors.Is(err, domain.ErrInvalidField):
		return err.Error()
	}
	return "a service I depend on is not responding"
}

// chartGateMessage ответ инструментов, которым нужна натальная карта
func chartGateMessage(p *domain.UserProfile) string {
	missing := onboarding.Evaluate(p).MissingChartFields()
	if len(missing) == 0 {
		return "Error: the natal chart is not available yet. The birth details are saved, but the chart could not be calculated; try updating the birth date or city again."
	}
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = strings.ReplaceAll(string(f), "_", " ")
	}
	return fmt.Sprintf("Error: the natal chart is not available yet. Still needed: %s. Ask the user for it, then call update_user_profile.", strings.Join(names, " and "))
}
