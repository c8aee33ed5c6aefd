package usageRepo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/persistence"
	ports "github.com/admin/astro-agent/internal/ports/repository"
)

type usageColumns struct {
	TableName    string
	ID           string
	UserID       string
	Provider     string
	Model        string
	InputTokens  string
	OutputTokens string
	CostUSD      string
	CreatedAt    string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns usageColumns
}

// New создаёт репозиторий учёта расходов на LLM
func New(db persistence.Persistence, log *slog.Logger) ports.IUsageRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: usageColumns{
			TableName:    "llm_usage",
			ID:           "id",
			UserID:       "user_id",
			Provider:     "provider",
			Model:        "model",
			InputTokens:  "input_tokens",
			OutputTokens: "output_tokens",
			CostUSD:      "cost_usd",
			CreatedAt:    "created_at",
		},
	}
}

// Add записывает расход одного хода
func (r *Repository) Add(ctx context.Context, rec *domain.UsageRecord) error {
	c := r.columns
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.TableName, c.ID, c.UserID, c.Provider, c.Model, c.InputTokens, c.OutputTokens, c.CostUSD, c.CreatedAt)
	err := r.db.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Provider, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.CreatedAt)
	if err != nil {
		r.Log.Error("failed to add usage record", "error", err, "user_id", rec.UserID)
		return fmt.Errorf("failed to add usage record: %w", err)
	}
	r.Log.Debug("usage recorded", "user_id", rec.UserID, "cost_usd", rec.CostUSD)
	return nil
}

// CostSince сумма расходов пользователя с момента since
func (r *Repository) CostSince(ctx context.Context, userID string, since time.Time) (float64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s = $1 AND %s >= $2`,
		r.columns.CostUSD, r.columns.TableName, r.columns.UserID, r.columns.CreatedAt)
	var total float64
	if err := r.db.Get(ctx, &total, query, userID, since); err != nil {
		r.Log.Error("failed to sum usage", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return total, nil
}

// DeleteAllForUser удаляет журнал пользователя
func (r *Repository) DeleteAllForUser(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, r.columns.TableName, r.columns.UserID)
	if err := r.db.Exec(ctx, query, userID); err != nil {
		r.Log.Error("failed to delete usage records", "error", err, "user_id", userID)
		return fmt.Errorf("failed to delete usage records: %w", err)
	}
	return nil
}
