// Package agent ход диалога: контекст, цикл вызова инструментов и итоговый ответ
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
	"github.com/admin/astro-agent/internal/usecases/tools"
)

// UsageTracker учёт расходов на модель и дневной лимит
type UsageTracker interface {
	Record(ctx context.Context, userID, provider, model string, usage domain.Usage) (*domain.UsageRecord, error)
	CheckLimit(ctx context.Context, userID string) error
}

// Orchestrator обрабатывает ходы; ходы одного пользователя выполняются строго по очереди
type Orchestrator struct {
	llm      service.ILLMClient
	registry *tools.Registry
	profiles service.IProfileService
	memory   service.IMemoryService
	usage    UsageTracker
	locks    *keyedMutex
	cfg      *Config
	now      func() time.Time
	Log      *slog.Logger
}

// New usage может быть nil
func New(llm service.ILLMClient, registry *tools.Registry, profiles service.IProfileService, memory service.IMemoryService, usage UsageTracker, cfg *Config, log *slog.Logger) *Orchestrator {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Orchestrator{
		llm:      llm,
		registry: registry,
		profiles: profiles,
		memory:   memory,
		usage:    usage,
		locks:    newKeyedMutex(),
		cfg:      cfg,
		now:      time.Now,
		Log:      log,
	}
}

// LockUser тот же мьютекс пользователя, что держит ход диалога. Возвращает функцию разблокировки
func (o *Orchestrator) LockUser(userID string) func() {
	return o.locks.Lock(userID)
}

// Registry инструменты агента, их же отдаёт MCP сервер
func (o *Orchestrator) Registry() *tools.Registry {
	return o.registry
}

// turnResult итог цикла генерации
type turnResult struct {
	text   string
	usage  domain.Usage
	model  string
	rounds int
	calls  int
}

// HandleMessage один ход пользователя. Ошибка возвращается только если ход не начался
func (o *Orchestrator) HandleMessage(ctx context.Context, sess *Session, text string, sink EventSink) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if sink == nil {
		sink = Discard
	}

	unlock := o.locks.Lock(sess.UserID)
	defer unlock()

	o.emit(ctx, sink, domain.Event{Type: domain.EventTyping})

	if o.usage != nil {
		if err := o.usage.CheckLimit(ctx, sess.UserID); errors.Is(err, domain.ErrDailyLimit) {
			o.Log.Warn("daily cost limit reached", "user_id", sess.UserID)
			o.respond(ctx, sink, limitMessage)
			return limitMessage, nil
		}
	}

	profile, err := o.profiles.GetOrCreate(ctx, sess.UserID)
	if err != nil {
		o.Log.Error("failed to load profile", "error", err, "user_id", sess.UserID)
		o.emit(ctx, sink, domain.Event{Type: domain.EventError, Content: "I encountered an error processing your message. Please try again."})
		return "", fmt.Errorf("failed to load profile: %w", err)
	}

	tc := &tools.TurnContext{
		UserID:         sess.UserID,
		ConversationID: sess.ConversationID,
		Profile:        profile,
		Now:            o.now(),
	}

	var memories []domain.MemorySearchResult
	if sess.Turns() == 0 || shouldRecall(text) {
		memories = o.recall(ctx, sess.UserID, text)
	}

	messages := append(sess.History(), domain.Message{Role: domain.RoleUser, Content: text})
	res := o.run(ctx, tc, messages, memories, sink)

	o.respond(ctx, sink, res.text)
	transcript := sess.appendTurn(text, res.text, o.cfg.historyLimit())
	o.recordUsage(ctx, sess.UserID, res)

	if o.memory != nil {
		o.memory.ScheduleExtraction(sess.UserID, sess.ConversationID, transcript, time.Duration(o.cfg.ExtractionDelaySec)*time.Second)
	}

	o.Log.Info("turn completed",
		"user_id", sess.UserID,
		"rounds", res.rounds,
		"tool_calls", res.calls,
		"chart_updated", tc.ChartUpdated,
		"input_tokens", res.usage.InputTokens,
		"output_tokens", res.usage.OutputTokens)
	return res.text, nil
}

// Welcome приветствие в начале сессии через тот же цикл; синтетический промпт в историю не попадает
func (o *Orchestrator) Welcome(ctx context.Context, sess *Session, sink EventSink) (string, bool, error) {
	if sink == nil {
		sink = Discard
	}
	unlock := o.locks.Lock(sess.UserID)
	defer unlock()

	profile, err := o.profiles.GetOrCreate(ctx, sess.UserID)
	if err != nil {
		o.Log.Error("failed to load profile", "error", err, "user_id", sess.UserID)
		return "", false, fmt.Errorf("failed to load profile: %w", err)
	}
	state := onboarding.Evaluate(profile)
	needsOnboarding := !state.IsComplete()

	text := ""
	limited := false
	if o.usage != nil {
		limited = errors.Is(o.usage.CheckLimit(ctx, sess.UserID), domain.ErrDailyLimit)
	}
	if !limited {
		tc := &tools.TurnContext{
			UserID:         sess.UserID,
			ConversationID: sess.ConversationID,
			Profile:        profile,
			Now:            o.now(),
		}
		prompt := []domain.Message{{Role: domain.RoleUser, Content: welcomePrompt(profile, state)}}
		res := o.run(ctx, tc, prompt, nil, Discard)
		o.recordUsage(ctx, sess.UserID, res)
		if res.text != apology {
			text = res.text
		}
	}
	if text == "" {
		text = fallbackWelcome(profile, state)
	}

	o.emit(ctx, sink, domain.Event{Type: domain.EventWelcome, Content: text, NeedsOnboarding: &needsOnboarding})
	return text, needsOnboarding, nil
}

// EndSession сохраняет сводку разговора; flush сразу выполняет отложенное извлечение
func (o *Orchestrator) EndSession(ctx context.Context, sess *Session, flush bool) {
	if o.memory == nil {
		return
	}
	transcript := sess.Transcript()
	if len(transcript) == 0 {
		return
	}
	if flush {
		o.memory.ScheduleExtraction(sess.UserID, sess.ConversationID, transcript, time.Duration(o.cfg.QuitExtractionDelaySec)*time.Second)
		o.memory.FlushExtraction(ctx, sess.UserID)
	}
	if err := o.memory.StoreConversationSummary(ctx, sess.UserID, sess.ConversationID, transcript); err != nil {
		o.Log.Warn("failed to store conversation summary", "error", err, "user_id", sess.UserID)
	}
}

// run цикл: не больше cfg.rounds() вызовов модели с инструментами, затем финальный вызов без них
func (o *Orchestrator) run(ctx context.Context, tc *tools.TurnContext, messages []domain.Message, memories []domain.MemorySearchResult, sink EventSink) turnResult {
	var res turnResult
	definitions := o.registry.Definitions()
	partial := ""

	for res.rounds < o.cfg.rounds() {
		resp, err := o.complete(ctx, tc, messages, memories, definitions)
		res.rounds++
		if err != nil {
			o.Log.Error("llm call failed", "error", err, "user_id", tc.UserID, "round", res.rounds)
			break
		}
		res.usage = res.usage.Add(resp.Usage)
		res.model = resp.Model
		content := strings.TrimSpace(resp.Content)
		if content != "" {
			partial = content
		}
		if len(resp.ToolCalls) == 0 {
			if content != "" {
				res.text = content
				return res
			}
			break
		}

		messages = append(messages, domain.Message{Role: domain.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			o.emit(ctx, sink, domain.Event{Type: domain.EventToolCall, Tool: call.Name, Status: domain.ToolStatusStarted})
			result := o.registry.Execute(ctx, tc, call)
			res.calls++
			o.emit(ctx, sink, domain.Event{Type: domain.EventToolCall, Tool: call.Name, Status: domain.ToolStatusCompleted})
			messages = append(messages, domain.Message{
				Role:       domain.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	resp, err := o.complete(ctx, tc, messages, memories, nil)
	if err != nil {
		o.Log.Error("final llm call failed", "error", err, "user_id", tc.UserID)
	} else {
		res.usage = res.usage.Add(resp.Usage)
		res.model = resp.Model
		if content := strings.TrimSpace(resp.Content); content != "" {
			res.text = content
			return res
		}
	}

	if partial != "" {
		res.text = partial
		return res
	}
	res.text = apology
	return res
}

// complete вызов модели с таймаутом; системный промпт строится из актуального профиля хода
func (o *Orchestrator) complete(ctx context.Context, tc *tools.TurnContext, messages []domain.Message, memories []domain.MemorySearchResult, definitions []domain.ToolDefinition) (*domain.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.llmTimeout())
	defer cancel()

	state := onboarding.Evaluate(tc.Profile)
	return o.llm.Complete(ctx, domain.CompletionRequest{
		System:   systemPrompt(tc.Profile, state, memories, tc.Now),
		Messages: messages,
		Tools:    definitions,
	})
}

func (o *Orchestrator) recall(ctx context.Context, userID, text string) []domain.MemorySearchResult {
	if o.memory == nil {
		return nil
	}
	results, err := o.memory.Search(ctx, userID, text, o.cfg.recallLimit())
	if err != nil {
		o.Log.Warn("failed to recall memories", "error", err, "user_id", userID)
		return nil
	}
	out := results[:0]
	for _, r := range results {
		if r.Relevance >= o.cfg.RAGMinSimilarity {
			out = append(out, r)
		}
	}
	return out
}

func (o *Orchestrator) recordUsage(ctx context.Context, userID string, res turnResult) {
	if o.usage == nil || (res.usage.InputTokens == 0 && res.usage.OutputTokens == 0) {
		return
	}
	if _, err := o.usage.Record(ctx, userID, o.llm.Provider(), res.model, res.usage); err != nil {
		o.Log.Warn("failed to record usage", "error", err, "user_id", userID)
	}
}

// respond отдаёт ответ потоком по словам и целиком
func (o *Orchestrator) respond(ctx context.Context, sink EventSink, text string) {
	o.emit(ctx, sink, domain.Event{Type: domain.EventStreamStart})
	for _, chunk := range Chunks(text) {
		o.emit(ctx, sink, domain.Event{Type: domain.EventStreamChunk, Content: chunk})
	}
	o.emit(ctx, sink, domain.Event{Type: domain.EventStreamEnd})
	o.emit(ctx, sink, domain.Event{Type: domain.EventResponse, Content: text})
}

func (o *Orchestrator) emit(ctx context.Context, sink EventSink, event domain.Event) {
	if err := sink.Send(ctx, event); err != nil {
		o.Log.Debug("failed to send event", "error", err, "type", event.Type)
	}
}
