package pg

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/ports/persistence"
	"github.com/jmoiron/sqlx"
)

const defaultSlowQuery = 500 * time.Millisecond

// DB обёртка над sqlx.DB с логированием медленных запросов
type DB struct {
	db   *sqlx.DB
	slow time.Duration
	log  *slog.Logger
}

func NewDB(db *sqlx.DB, slow time.Duration, log *slog.Logger) *DB {
	if slow <= 0 {
		slow = defaultSlowQuery
	}
	return &DB{db: db, slow: slow, log: log}
}

var _ persistence.Persistence = (*DB)(nil)

// Get выполняет запрос и сканирует результат в структуру (одна запись)
func (d *DB) Get(ctx context.Context, dest any, query string, args ...any) error {
	defer d.observe(query, time.Now())
	return d.db.GetContext(ctx, dest, query, args...)
}

// Select выполняет запрос и сканирует результаты в слайс структур
func (d *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	defer d.observe(query, time.Now())
	return d.db.SelectContext(ctx, dest, query, args...)
}

// Exec выполняет запрос без возврата данных (INSERT, UPDATE, DELETE)
func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	defer d.observe(query, time.Now())
	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// ExecWithResult выполняет запрос и возвращает количество затронутых строк
func (d *DB) ExecWithResult(ctx context.Context, query string, args ...any) (int64, error) {
	defer d.observe(query, time.Now())
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (d *DB) observe(query string, started time.Time) {
	elapsed := time.Since(started)
	if elapsed < d.slow || d.log == nil {
		return
	}
	d.log.Warn("slow query", "query", queryLabel(query), "duration_ms", elapsed.Milliseconds())
}

// queryLabel запрос в одну строку, не длиннее 120 символов
func queryLabel(query string) string {
	label := strings.Join(strings.Fields(query), " ")
	if len(label) > 120 {
		label = label[:120] + "..."
	}
	return label
}
