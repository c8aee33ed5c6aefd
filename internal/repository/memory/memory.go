package memoryRepo

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/pkg/vector"
	"github.com/admin/astro-agent/internal/ports/persistence"
	ports "github.com/admin/astro-agent/internal/ports/repository"
)

type memoryColumns struct {
	TableName            string
	ID                   string
	UserID               string
	MemoryType           string
	Content              string
	Metadata             string
	SourceConversationID string
	ExtractedAt          string
	Confidence           string
	Embedding            string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns memoryColumns
}

// New создаёт репозиторий памяти пользователей
func New(db persistence.Persistence, log *slog.Logger) ports.IMemoryRepo {
	cols := memoryColumns{
		TableName:            "user_memories",
		ID:                   "id",
		UserID:               "user_id",
		MemoryType:           "memory_type",
		Content:              "content",
		Metadata:             "metadata",
		SourceConversationID: "source_conversation_id",
		ExtractedAt:          "extracted_at",
		Confidence:           "confidence",
		Embedding:            "embedding",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

func (r *Repository) allColumns() string {
	c := r.columns
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		c.ID, c.UserID, c.MemoryType, c.Content, c.Metadata,
		c.SourceConversationID, c.ExtractedAt, c.Confidence, c.Embedding)
}

// Add сохраняет память вместе с эмбеддингом
func (r *Repository) Add(ctx context.Context, m *domain.Memory) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns())
	var source sql.NullString
	if m.SourceConversationID != nil {
		source = sql.NullString{String: *m.SourceConversationID, Valid: true}
	}
	err := r.db.Exec(ctx, query,
		m.ID,
		m.UserID,
		string(m.Type),
		m.Content,
		m.Metadata,
		source,
		m.ExtractedAt,
		m.Confidence,
		vector.Encode(m.Embedding))
	if err != nil {
		r.Log.Error("failed to add memory",
			"error", err,
			"user_id", m.UserID,
			"memory_type", m.Type)
		return fmt.Errorf("failed to add memory: %w", err)
	}
	r.Log.Debug("memory added successfully", "memory_id", m.ID, "user_id", m.UserID)
	return nil
}

// Query перебором ищет ближайшие записи пользователя, фильтр по user_id в самом запросе
func (r *Repository) Query(ctx context.Context, userID string, embedding []float32, limit int, memoryType *domain.MemoryType) ([]domain.MemorySearchResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID)
	args := []interface{}{userID}
	if memoryType != nil {
		query += fmt.Sprintf(` AND %s = $2`, r.columns.MemoryType)
		args = append(args, string(*memoryType))
	}

	var rows []memoryRow
	if err := r.db.Select(ctx, &rows, query, args...); err != nil {
		r.Log.Error("failed to query memories", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	memories := make([]domain.Memory, 0, len(rows))
	vectors := make([][]float32, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			r.Log.Warn("skipping memory with corrupt embedding", "error", err, "memory_id", row.ID)
			continue
		}
		vectors = append(vectors, m.Embedding)
		m.Embedding = nil
		memories = append(memories, m)
	}

	scored := vector.TopK(embedding, vectors, limit)
	out := make([]domain.MemorySearchResult, 0, len(scored))
	for _, sc := range scored {
		out = append(out, domain.MemorySearchResult{
			Memory:    memories[sc.Index],
			Distance:  sc.Distance,
			Relevance: domain.RelevanceFromDistance(sc.Distance),
		})
	}
	r.Log.Debug("memories queried", "user_id", userID, "scanned", len(rows), "returned", len(out))
	return out, nil
}

// ListByUser вся память пользователя, новые первыми
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.ExtractedAt)
	var rows []memoryRow
	if err := r.db.Select(ctx, &rows, query, userID); err != nil {
		r.Log.Error("failed to list memories", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	out := make([]domain.Memory, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			r.Log.Warn("skipping memory with corrupt embedding", "error", err, "memory_id", row.ID)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Delete удаляет записи пользователя по id, чужие id игнорируются
func (r *Repository) Delete(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s IN (%s)`,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.ID,
		strings.Join(placeholders, ", "))
	rowsAffected, err := r.db.ExecWithResult(ctx, query, args...)
	if err != nil {
		r.Log.Error("failed to delete memories", "error", err, "user_id", userID, "count", len(ids))
		return 0, fmt.Errorf("failed to delete memories: %w", err)
	}
	r.Log.Debug("memories deleted", "user_id", userID, "rowsAffected", rowsAffected)
	return int(rowsAffected), nil
}

// DeleteAllForUser удаляет всю память пользователя
func (r *Repository) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, r.columns.TableName, r.columns.UserID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, userID)
	if err != nil {
		r.Log.Error("failed to delete user memories", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to delete user memories: %w", err)
	}
	r.Log.Debug("user memories deleted", "user_id", userID, "rowsAffected", rowsAffected)
	return int(rowsAffected), nil
}

// CountByType количество записей пользователя по типам
func (r *Repository) CountByType(ctx context.Context, userID string) (map[domain.MemoryType]int, error) {
	query := fmt.Sprintf(`SELECT %s AS memory_type, COUNT(*) AS count FROM %s WHERE %s = $1 GROUP BY %s`,
		r.columns.MemoryType,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.MemoryType)
	var rows []struct {
		MemoryType string `db:"memory_type"`
		Count      int    `db:"count"`
	}
	if err := r.db.Select(ctx, &rows, query, userID); err != nil {
		r.Log.Error("failed to count memories", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to count memories: %w", err)
	}
	out := make(map[domain.MemoryType]int, len(rows))
	for _, row := range rows {
		out[domain.MemoryType(row.MemoryType)] = row.Count
	}
	return out, nil
}

// ListUserIDs пользователи с памятью, для ночной консолидации
func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s ORDER BY %s`,
		r.columns.UserID,
		r.columns.TableName,
		r.columns.UserID)
	var ids []string
	if err := r.db.Select(ctx, &ids, query); err != nil {
		r.Log.Error("failed to list memory users", "error", err)
		return nil, fmt.Errorf("failed to list memory users: %w", err)
	}
	return ids, nil
}

type memoryRow struct {
	ID                   string          `db:"id"`
	UserID               string          `db:"user_id"`
	MemoryType           string          `db:"memory_type"`
	Content              string          `db:"content"`
	Metadata             domain.Metadata `db:"metadata"`
	SourceConversationID sql.NullString  `db:"source_conversation_id"`
	ExtractedAt          time.Time       `db:"extracted_at"`
	Confidence           float64         `db:"confidence"`
	Embedding            []byte          `db:"embedding"`
}

func (row memoryRow) toDomain() (domain.Memory, error) {
	m := domain.Memory{
		ID:          row.ID,
		UserID:      row.UserID,
		Type:        domain.MemoryType(row.MemoryType),
		Content:     row.Content,
		Metadata:    row.Metadata,
		ExtractedAt: row.ExtractedAt,
		Confidence:  row.Confidence,
	}
	if row.SourceConversationID.Valid {
		v := row.SourceConversationID.String
		m.SourceConversationID = &v
	}
	if len(row.Embedding) > 0 {
		emb, err := vector.Decode(row.Embedding)
		if err != nil {
			return domain.Memory{}, err
		}
		m.Embedding = emb
	}
	return m, nil
}
