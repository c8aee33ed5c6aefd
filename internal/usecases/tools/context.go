package tools

import (
	"time"

	"github.com/admin/astro-agent/internal/domain"
)

// TurnContext состояние хода, которое оркестратор передаёт каждому инструменту.
// Profile обновляется мутирующими инструментами, следующие вызовы в том же ходе видят изменения
type TurnContext struct {
	UserID         string
	ConversationID string
	Profile        *domain.UserProfile
	Now            time.Time
	ChartUpdated   bool
}

// Today дата хода в полночь UTC
func (tc *TurnContext) Today() time.Time {
	now := tc.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
