package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/admin/astro-agent/internal/ports/jobs"
	"github.com/admin/astro-agent/internal/ports/service"
)

// defaultRetries паузы между повторами упавшей джобы | now + 1m + 10m + 30m
var defaultRetries = []time.Duration{
	1 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// Scheduler управляет запуском периодических джоб
type Scheduler struct {
	jobs           []jobs.Job
	alerterService service.IAlerterService
	retries        []time.Duration
	now            func() time.Time
	wg             sync.WaitGroup
	log            *slog.Logger
}

// NewScheduler alerterService может быть nil
func NewScheduler(log *slog.Logger, alerterService service.IAlerterService) *Scheduler {
	return &Scheduler{
		jobs:           make([]jobs.Job, 0),
		alerterService: alerterService,
		retries:        defaultRetries,
		now:            time.Now,
		log:            log,
	}
}

// Register регистрирует джобу в планировщике
func (s *Scheduler) Register(job jobs.Job) {
	s.jobs = append(s.jobs, job)
	s.log.Debug("job registered", "job_name", job.Name(), "total_jobs", len(s.jobs))
}

// Run запускает все джобы и блокируется до отмены контекста
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.log.Warn("no jobs registered, scheduler not started")
		return nil
	}

	s.log.Info("starting job scheduler", "jobs_count", len(s.jobs))

	for _, job := range s.jobs {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runJob(ctx, job)
		}()
	}

	<-ctx.Done()
	s.wg.Wait()
	s.log.Info("job scheduler stopped")
	return nil
}

// runJob запускает отдельную джобу в цикле
func (s *Scheduler) runJob(ctx context.Context, job jobs.Job) {
	jobName := job.Name()
	for {
		now := s.now()
		timer := time.NewTimer(job.NextRun(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("job stopped by context", "job_name", jobName)
			return
		case <-timer.C:
			if attempts := s.executeJobWithRetry(ctx, job); attempts != nil {
				s.log.Error("job failed after all retries",
					"job_name", jobName,
					"attempts", len(attempts),
					"last_error", attempts[len(attempts)-1].err,
				)
				s.sendAlert(ctx, jobName, attempts)
			} else {
				s.log.Info("job executed successfully", "job_name", jobName)
			}
		}
	}
}

// jobAttemptError ошибка конкретной попытки выполнения джобы
type jobAttemptError struct {
	attempt int
	err     error
}

// executeJobWithRetry возвращает ошибки всех попыток или nil при успехе
func (s *Scheduler) executeJobWithRetry(ctx context.Context, job jobs.Job) []jobAttemptError {
	var attempts []jobAttemptError

	for i := 0; i <= len(s.retries); i++ {
		if i > 0 {
			timer := time.NewTimer(s.retries[i-1])
			select {
			case <-ctx.Done():
				timer.Stop()
				return append(attempts, jobAttemptError{attempt: i + 1, err: ctx.Err()})
			case <-timer.C:
			}
		}

		err := job.Run(ctx)
		if err == nil {
			return nil
		}
		attempts = append(attempts, jobAttemptError{attempt: i + 1, err: err})
		s.log.Warn("job execution failed",
			"job_name", job.Name(),
			"attempt", i+1,
			"retries_remaining", len(s.retries)-i,
			"error", err,
		)
	}
	return attempts
}

// sendAlert алертит на финальную ошибку после ретраев
func (s *Scheduler) sendAlert(ctx context.Context, jobName string, attempts []jobAttemptError) {
	if s.alerterService == nil {
		return
	}

	var message strings.Builder
	message.WriteString("Scheduler job failed, retries exhausted\n\n")
	fmt.Fprintf(&message, "Job: %s\n\nAttempts:\n", jobName)
	for _, a := range attempts {
		fmt.Fprintf(&message, "%d: %s\n", a.attempt, a.err.Error())
	}

	if alertErr := s.alerterService.SendAlert(ctx, message.String()); alertErr != nil {
		s.log.Warn("failed to send job failure alert",
			"job_name", jobName,
			"error", alertErr,
		)
	}
}

// nextDaily ближайшее время hour:minute в UTC строго после now
func nextDaily(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
