package jobs

import (
	"context"
	"time"
)

// Job периодическая задача для планировщика
type Job interface {
	Name() string
	NextRun(now time.Time) time.Time
	Run(ctx context.Context) error
}
