package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/repository"
	"github.com/google/uuid"
)

// warnShare доля дневного лимита, после которой пишется предупреждение
const warnShare = 0.6

// Tracker учёт расходов на LLM и дневной лимит на пользователя
type Tracker struct {
	repo       repository.IUsageRepo
	dailyLimit float64
	now        func() time.Time
	Log        *slog.Logger
}

// New dailyLimit 0 отключает ограничение
func New(repo repository.IUsageRepo, dailyLimit float64, log *slog.Logger) *Tracker {
	return &Tracker{
		repo:       repo,
		dailyLimit: dailyLimit,
		now:        time.Now,
		Log:        log,
	}
}

// Record сохраняет расход одного хода
func (t *Tracker) Record(ctx context.Context, userID, provider, model string, usage domain.Usage) (*domain.UsageRecord, error) {
	cost, known := Cost(provider, model, usage.InputTokens, usage.OutputTokens)
	if !known {
		t.Log.Debug("unknown model pricing, assuming zero cost", "provider", provider, "model", model)
	}

	record := &domain.UsageRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     provider,
		Model:        model,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		CostUSD:      cost,
		CreatedAt:    t.now().UTC(),
	}
	if err := t.repo.Add(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	if t.dailyLimit > 0 {
		spent, err := t.TodayCost(ctx, userID)
		if err == nil && spent >= t.dailyLimit*warnShare {
			t.Log.Warn("user approaching daily cost limit",
				"user_id", userID,
				"spent_usd", spent,
				"limit_usd", t.dailyLimit)
		}
	}
	return record, nil
}

// TodayCost расход пользователя с начала текущих суток UTC
func (t *Tracker) TodayCost(ctx context.Context, userID string) (float64, error) {
	now := t.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return t.repo.CostSince(ctx, userID, dayStart)
}

// CheckLimit возвращает domain.ErrDailyLimit, если лимит на сегодня исчерпан
func (t *Tracker) CheckLimit(ctx context.Context, userID string) error {
	if t.dailyLimit <= 0 {
		return nil
	}
	spent, err := t.TodayCost(ctx, userID)
	if err != nil {
		// ошибка учёта не блокирует диалог
		t.Log.Error("failed to check daily cost", "error", err, "user_id", userID)
		return nil
	}
	if spent >= t.dailyLimit {
		t.Log.Warn("user exceeded daily cost limit", "user_id", userID, "spent_usd", spent, "limit_usd", t.dailyLimit)
		return domain.ErrDailyLimit
	}
	return nil
}

func (t *Tracker) DeleteAllForUser(ctx context.Context, userID string) error {
	return t.repo.DeleteAllForUser(ctx, userID)
}
