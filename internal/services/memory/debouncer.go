package memory

import (
	"context"
	"sync"
	"time"
)

// Debouncer откладывает по одной задаче на ключ. Новая задача заменяет ожидающую,
// заменённая не выполнится даже если её таймер уже сработал
type Debouncer struct {
	mu      sync.Mutex
	jobs    map[string]*pendingJob
	active  map[string][]*pendingJob
	gen     uint64
	closed  bool
	base    context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

type pendingJob struct {
	gen   uint64
	timer *time.Timer
	fn    func(ctx context.Context)
	done  chan struct{}
}

func NewDebouncer() *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		jobs:   make(map[string]*pendingJob),
		active: make(map[string][]*pendingJob),
		base:   ctx,
		cancel: cancel,
	}
}

// Submit планирует fn через delay, отменяя ожидающую задачу того же ключа
func (d *Debouncer) Submit(key string, delay time.Duration, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if prev, ok := d.jobs[key]; ok {
		prev.timer.Stop()
	}
	d.gen++
	gen := d.gen
	job := &pendingJob{gen: gen, fn: fn, done: make(chan struct{})}
	job.timer = time.AfterFunc(delay, func() { d.fire(key, gen) })
	d.jobs[key] = job
}

func (d *Debouncer) fire(key string, gen uint64) {
	job := d.take(key, gen)
	if job == nil {
		return
	}
	defer d.finish(key, job)
	job.fn(d.base)
}

// take забирает задачу под локом; при несовпадении поколения задача уже заменена
func (d *Debouncer) take(key string, gen uint64) *pendingJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, ok := d.jobs[key]
	if !ok || d.closed || (gen != 0 && job.gen != gen) {
		return nil
	}
	delete(d.jobs, key)
	job.timer.Stop()
	d.active[key] = append(d.active[key], job)
	d.running.Add(1)
	return job
}

func (d *Debouncer) finish(key string, job *pendingJob) {
	d.mu.Lock()
	jobs := d.active[key]
	for i, j := range jobs {
		if j == job {
			jobs = append(jobs[:i], jobs[i+1:]...)
			break
		}
	}
	if len(jobs) == 0 {
		delete(d.active, key)
	} else {
		d.active[key] = jobs
	}
	d.mu.Unlock()

	close(job.done)
	d.running.Done()
}

// Flush выполняет ожидающую задачу ключа сейчас, в вызывающей горутине
func (d *Debouncer) Flush(ctx context.Context, key string) bool {
	job := d.take(key, 0)
	if job == nil {
		return false
	}
	defer d.finish(key, job)
	job.fn(ctx)
	return true
}

// Cancel отменяет ожидающую задачу ключа
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	job, ok := d.jobs[key]
	if !ok {
		return false
	}
	job.timer.Stop()
	delete(d.jobs, key)
	return true
}

// Wait ждёт завершения уже запущенных задач ключа. Ожидающие задачи не запускает
func (d *Debouncer) Wait(ctx context.Context, key string) error {
	d.mu.Lock()
	jobs := append([]*pendingJob(nil), d.active[key]...)
	d.mu.Unlock()

	for _, job := range jobs {
		select {
		case <-job.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pending число ожидающих задач
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// Close останавливает таймеры и ждёт выполняющиеся задачи
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for key, job := range d.jobs {
		job.timer.Stop()
		delete(d.jobs, key)
	}
	d.mu.Unlock()

	d.cancel()
	d.running.Wait()
}
