package repository

import (
	"context"
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

// IUsageRepo журнал расходов на LLM
type IUsageRepo interface {
	Add(ctx context.Context, record *domain.UsageRecord) error
	CostSince(ctx context.Context, userID string, since time.Time) (float64, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}
