package profileRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/persistence"
	ports "github.com/admin/astro-agent/internal/ports/repository"
)

type profileColumns struct {
	TableName          string
	ID                 string
	Name               string
	Email              string
	Gender             string
	BirthDate          string
	BirthTime          string
	BirthTimeUnknown   string
	BirthCity          string
	BirthLatitude      string
	BirthLongitude     string
	BirthTimezone      string
	CurrentCity        string
	CurrentLatitude    string
	CurrentLongitude   string
	CurrentTimezone    string
	NatalChart         string
	ChartComputedAt    string
	OnboardingComplete string
	CreatedAt          string
	UpdatedAt          string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns profileColumns
}

// New создаёт репозиторий профилей
func New(db persistence.Persistence, log *slog.Logger) ports.IProfileRepo {
	cols := profileColumns{
		TableName:          "user_profiles",
		ID:                 "id",
		Name:               "name",
		Email:              "email",
		Gender:             "gender",
		BirthDate:          "birth_date",
		BirthTime:          "birth_time",
		BirthTimeUnknown:   "birth_time_unknown",
		BirthCity:          "birth_city",
		BirthLatitude:      "birth_latitude",
		BirthLongitude:     "birth_longitude",
		BirthTimezone:      "birth_timezone",
		CurrentCity:        "current_city",
		CurrentLatitude:    "current_latitude",
		CurrentLongitude:   "current_longitude",
		CurrentTimezone:    "current_timezone",
		NatalChart:         "natal_chart",
		ChartComputedAt:    "chart_computed_at",
		OnboardingComplete: "onboarding_complete",
		CreatedAt:          "created_at",
		UpdatedAt:          "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

// allColumns все 20 колонок в порядке profileRow.args
func (r *Repository) allColumns() string {
	c := r.columns
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		c.ID, c.Name, c.Email, c.Gender,
		c.BirthDate, c.BirthTime, c.BirthTimeUnknown,
		c.BirthCity, c.BirthLatitude, c.BirthLongitude, c.BirthTimezone,
		c.CurrentCity, c.CurrentLatitude, c.CurrentLongitude, c.CurrentTimezone,
		c.NatalChart, c.ChartComputedAt, c.OnboardingComplete,
		c.CreatedAt, c.UpdatedAt)
}

// Get получает профиль по ID
func (r *Repository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var row profileRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	err := r.db.Get(ctx, &row, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("profile not found", "user_id", userID)
			return nil, domain.ErrProfileNotFound
		}
		r.Log.Error("failed to get profile",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile, err := row.toDomain()
	if err != nil {
		r.Log.Error("failed to decode profile", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	r.Log.Debug("profile retrieved successfully", "user_id", userID)
	return profile, nil
}

// Create создаёт профиль, существующий профиль не трогает
func (r *Repository) Create(ctx context.Context, profile *domain.UserProfile) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (%s) DO NOTHING`,
		r.columns.TableName,
		r.allColumns(),
		r.columns.ID)
	row, err := fromDomain(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := r.db.Exec(ctx, query, row.args()...); err != nil {
		r.Log.Error("failed to create profile",
			"error", err,
			"user_id", profile.ID)
		return fmt.Errorf("failed to create profile: %w", err)
	}
	r.Log.Debug("profile created successfully", "user_id", profile.ID)
	return nil
}

// Save перезаписывает профиль
func (r *Repository) Save(ctx context.Context, profile *domain.UserProfile) error {
	c := r.columns
	query := fmt.Sprintf(`UPDATE %s SET
		%s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7,
		%s = $8, %s = $9, %s = $10, %s = $11,
		%s = $12, %s = $13, %s = $14, %s = $15,
		%s = $16, %s = $17, %s = $18, %s = $19
		WHERE %s = $1`,
		c.TableName,
		c.Name, c.Email, c.Gender, c.BirthDate, c.BirthTime, c.BirthTimeUnknown,
		c.BirthCity, c.BirthLatitude, c.BirthLongitude, c.BirthTimezone,
		c.CurrentCity, c.CurrentLatitude, c.CurrentLongitude, c.CurrentTimezone,
		c.NatalChart, c.ChartComputedAt, c.OnboardingComplete, c.UpdatedAt,
		c.ID)
	row, err := fromDomain(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	rowsAffected, err := r.db.ExecWithResult(ctx, query, row.updateArgs()...)
	if err != nil {
		r.Log.Error("failed to save profile",
			"error", err,
			"user_id", profile.ID)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	if rowsAffected == 0 {
		r.Log.Warn("profile not found for update", "user_id", profile.ID)
		return domain.ErrProfileNotFound
	}
	r.Log.Debug("profile saved successfully", "user_id", profile.ID)
	return nil
}

// Delete удаляет профиль
func (r *Repository) Delete(ctx context.Context, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, r.columns.TableName, r.columns.ID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, userID)
	if err != nil {
		r.Log.Error("failed to delete profile", "error", err, "user_id", userID)
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	r.Log.Debug("profile deleted", "user_id", userID, "rowsAffected", rowsAffected)
	return nil
}

type profileRow struct {
	ID                 string            `db:"id"`
	Name               sql.NullString    `db:"name"`
	Email              sql.NullString    `db:"email"`
	Gender             sql.NullString    `db:"gender"`
	BirthDate          sql.NullTime      `db:"birth_date"`
	BirthTime          sql.NullString    `db:"birth_time"`
	BirthTimeUnknown   bool              `db:"birth_time_unknown"`
	BirthCity          sql.NullString    `db:"birth_city"`
	BirthLatitude      sql.NullFloat64   `db:"birth_latitude"`
	BirthLongitude     sql.NullFloat64   `db:"birth_longitude"`
	BirthTimezone      sql.NullString    `db:"birth_timezone"`
	CurrentCity        sql.NullString    `db:"current_city"`
	CurrentLatitude    sql.NullFloat64   `db:"current_latitude"`
	CurrentLongitude   sql.NullFloat64   `db:"current_longitude"`
	CurrentTimezone    sql.NullString    `db:"current_timezone"`
	NatalChart         *domain.ChartData `db:"natal_chart"`
	ChartComputedAt    sql.NullTime      `db:"chart_computed_at"`
	OnboardingComplete bool              `db:"onboarding_complete"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

func (row profileRow) args() []interface{} {
	return []interface{}{
		row.ID, row.Name, row.Email, row.Gender,
		row.BirthDate, row.BirthTime, row.BirthTimeUnknown,
		row.BirthCity, row.BirthLatitude, row.BirthLongitude, row.BirthTimezone,
		row.CurrentCity, row.CurrentLatitude, row.CurrentLongitude, row.CurrentTimezone,
		row.NatalChart, row.ChartComputedAt, row.OnboardingComplete,
		row.CreatedAt, row.UpdatedAt,
	}
}

// updateArgs аргументы UPDATE: created_at не меняется
func (row profileRow) updateArgs() []interface{} {
	args := row.args()
	return append(args[:18:18], row.UpdatedAt)
}

func fromDomain(p *domain.UserProfile) (profileRow, error) {
	row := profileRow{
		ID:                 p.ID,
		Name:               nullString(p.Name),
		Email:              nullString(p.Email),
		NatalChart:         p.NatalChart,
		OnboardingComplete: p.OnboardingComplete,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.Gender != nil {
		row.Gender = sql.NullString{String: string(*p.Gender), Valid: true}
	}
	if p.ChartComputedAt != nil {
		row.ChartComputedAt = sql.NullTime{Time: *p.ChartComputedAt, Valid: true}
	}
	if bd := p.BirthData; bd != nil {
		row.BirthTimeUnknown = bd.TimeUnknown
		if bd.Date != nil {
			row.BirthDate = sql.NullTime{Time: *bd.Date, Valid: true}
		}
		if bd.Time != nil {
			row.BirthTime = sql.NullString{String: bd.Time.String(), Valid: true}
		}
		if loc := bd.Location; loc != nil {
			row.BirthCity = sql.NullString{String: loc.City, Valid: true}
			row.BirthLatitude = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
			row.BirthLongitude = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
			row.BirthTimezone = sql.NullString{String: loc.Timezone, Valid: true}
		}
	}
	if loc := p.CurrentLocation; loc != nil {
		row.CurrentCity = sql.NullString{String: loc.City, Valid: true}
		row.CurrentLatitude = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
		row.CurrentLongitude = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
		row.CurrentTimezone = sql.NullString{String: loc.Timezone, Valid: true}
	}
	return row, nil
}

func (row profileRow) toDomain() (*domain.UserProfile, error) {
	p := &domain.UserProfile{
		ID:                 row.ID,
		NatalChart:         row.NatalChart,
		OnboardingComplete: row.OnboardingComplete,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.Name.Valid {
		v := row.Name.String
		p.Name = &v
	}
	if row.Email.Valid {
		v := row.Email.String
		p.Email = &v
	}
	if row.Gender.Valid {
		g := domain.Gender(row.Gender.String)
		p.Gender = &g
	}
	if row.ChartComputedAt.Valid {
		v := row.ChartComputedAt.Time
		p.ChartComputedAt = &v
	}

	bd := &domain.BirthData{TimeUnknown: row.BirthTimeUnknown}
	hasBirth := row.BirthTimeUnknown
	if row.BirthDate.Valid {
		d := time.Date(row.BirthDate.Time.Year(), row.BirthDate.Time.Month(), row.BirthDate.Time.Day(), 0, 0, 0, 0, time.UTC)
		bd.Date = &d
		hasBirth = true
	}
	if row.BirthTime.Valid {
		t, err := domain.ParseClockTime(row.BirthTime.String)
		if err != nil {
			return nil, fmt.Errorf("invalid birth_time %q: %w", row.BirthTime.String, err)
		}
		bd.Time = &t
		hasBirth = true
	}
	if row.BirthLatitude.Valid && row.BirthLongitude.Valid {
		bd.Location = &domain.Location{
			City:      row.BirthCity.String,
			Latitude:  row.BirthLatitude.Float64,
			Longitude: row.BirthLongitude.Float64,
			Timezone:  row.BirthTimezone.String,
		}
		hasBirth = true
	}
	if hasBirth {
		p.BirthData = bd
	}

	if row.CurrentLatitude.Valid && row.CurrentLongitude.Valid {
		p.CurrentLocation = &domain.Location{
			City:      row.CurrentCity.String,
			Latitude:  row.CurrentLatitude.Float64,
			Longitude: row.CurrentLongitude.Float64,
			Timezone:  row.CurrentTimezone.String,
		}
	}
	return p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
