package persistence

import "context"

// Persistence операции с БД, которые нужны репозиториям профилей, памяти и расходов
type Persistence interface {
	Get(ctx context.Context, dest any, query string, args ...any) error
	Select(ctx context.Context, dest any, query string, args ...any) error
	Exec(ctx context.Context, query string, args ...any) error
	// ExecWithResult возвращает количество затронутых строк
	ExecWithResult(ctx context.Context, query string, args ...any) (int64, error)
}
