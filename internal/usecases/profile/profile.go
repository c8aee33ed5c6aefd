package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/ports/repository"
	"github.com/admin/astro-agent/internal/ports/service"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
)

// Field поле профиля, которое можно изменить из диалога
type Field string

const (
	FieldName        Field = "name"
	FieldGender      Field = "gender"
	FieldBirthDate   Field = "birth_date"
	FieldBirthTime   Field = "birth_time"
	FieldBirthCity   Field = "birth_city"
	FieldCurrentCity Field = "current_city"
)

// Fields допустимые значения параметра field в порядке онбординга
var Fields = []Field{FieldName, FieldGender, FieldBirthDate, FieldBirthTime, FieldBirthCity, FieldCurrentCity}

// ParseField принимает и названия полей онбординга (birth_location, current_location)
func ParseField(s string) (Field, bool) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldName, FieldGender, FieldBirthDate, FieldBirthTime, FieldBirthCity, FieldCurrentCity:
		return f, true
	case Field(domain.FieldBirthLocation), "birth_place", "birthplace":
		return FieldBirthCity, true
	case Field(domain.FieldCurrentLocation), "location", "current_place":
		return FieldCurrentCity, true
	}
	return "", false
}

// IsLocation поле требует геокодирования по умолчанию
func (f Field) IsLocation() bool {
	return f == FieldBirthCity || f == FieldCurrentCity
}

func (f Field) affectsChart() bool {
	return f == FieldBirthDate || f == FieldBirthTime || f == FieldBirthCity
}

// ChartStatus что произошло с натальной картой после изменения профиля
type ChartStatus string

const (
	ChartUnchanged  ChartStatus = "unchanged"
	ChartCreated    ChartStatus = "created"
	ChartRecomputed ChartStatus = "recomputed"
	ChartPending    ChartStatus = "pending"
	ChartFailed     ChartStatus = "failed"
)

// UpdateResult результат изменения одного поля
type UpdateResult struct {
	Profile     *domain.UserProfile
	Field       Field
	Changed     bool
	ChartStatus ChartStatus
	// Missing поля, без которых карта пока не считается
	Missing []domain.OnboardingField
}

// Service профиль пользователя: создание, изменение полей, пересчёт карты
type Service struct {
	repo     repository.IProfileRepo
	charts   service.IChartService
	geocoder service.IGeocoder
	now      func() time.Time
	Log      *slog.Logger
}

func New(repo repository.IProfileRepo, charts service.IChartService, geocoder service.IGeocoder, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		charts:   charts,
		geocoder: geocoder,
		now:      time.Now,
		Log:      log,
	}
}

var _ service.IProfileService = (*Service)(nil)

func (s *Service) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return s.repo.Get(ctx, userID)
}

// GetOrCreate возвращает профиль, при первом обращении создаёт пустой
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.repo.Get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, err
	}

	if err := s.repo.Create(ctx, domain.NewUserProfile(userID, s.now().UTC())); err != nil {
		return nil, err
	}
	s.Log.Info("profile created", "user_id", userID)

	// при гонке двух первых сообщений Create не перезаписывает, читаем победителя
	return s.repo.Get(ctx, userID)
}

// UpdateField меняет одно поле профиля. Повтор того же значения ничего не пишет,
// после изменения данных рождения карта пересчитывается сразу
func (s *Service) UpdateField(ctx context.Context, userID string, field Field, value string, needsGeocoding bool) (*UpdateResult, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	value = strings.TrimSpace(value)
	updated := current.Clone()
	changed, err := s.apply(ctx, updated, field, value, needsGeocoding)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{Profile: current, Field: field, ChartStatus: ChartUnchanged}
	// карта могла не посчитаться раньше: повтор того же значения даёт повторную попытку
	retryChart := !changed && field.affectsChart() && updated.HasCompleteBirthData() && !current.HasChart()
	if !changed && !retryChart {
		result.Missing = onboarding.Evaluate(current).MissingChartFields()
		s.Log.Debug("profile field unchanged", "user_id", userID, "field", field)
		return result, nil
	}

	if field.affectsChart() {
		result.ChartStatus = s.recomputeChart(ctx, updated, current.HasChart())
	}
	updated.OnboardingComplete = onboarding.Evaluate(updated).IsComplete()
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, updated); err != nil {
		return nil, err
	}

	s.Log.Info("profile field updated",
		"user_id", userID,
		"field", field,
		"chart_status", result.ChartStatus,
		"onboarding_complete", updated.OnboardingComplete)

	result.Profile = updated
	result.Changed = changed
	result.Missing = onboarding.Evaluate(updated).MissingChartFields()
	return result, nil
}

// apply изменяет копию профиля и сообщает, отличается ли новое значение от старого
func (s *Service) apply(ctx context.Context, p *domain.UserProfile, field Field, value string, needsGeocoding bool) (bool, error) {
	if value == "" {
		return false, &domain.ParseError{Field: string(field), Value: value}
	}

	switch field {
	case FieldName:
		if p.Name != nil && *p.Name == value {
			return false, nil
		}
		p.Name = &value
		return true, nil

	case FieldGender:
		g := ParseGender(value)
		if p.Gender != nil && *p.Gender == g {
			return false, nil
		}
		p.Gender = &g
		return true, nil

	case FieldBirthDate:
		date, err := ParseBirthDate(value, s.now())
		if err != nil {
			return false, err
		}
		birth := ensureBirthData(p)
		if birth.Date != nil && birth.Date.Equal(date) {
			return false, nil
		}
		birth.Date = &date
		return true, nil

	case FieldBirthTime:
		t, unknown, err := ParseBirthTime(value)
		if err != nil {
			return false, err
		}
		birth := ensureBirthData(p)
		if unknown {
			if birth.TimeUnknown && birth.Time == nil {
				return false, nil
			}
			birth.Time = nil
			birth.TimeUnknown = true
			return true, nil
		}
		if birth.Time != nil && *birth.Time == *t && !birth.TimeUnknown {
			return false, nil
		}
		birth.Time = t
		birth.TimeUnknown = false
		return true, nil

	case FieldBirthCity, FieldCurrentCity:
		existing := p.CurrentLocation
		if field == FieldBirthCity {
			existing = nil
			if p.BirthData != nil {
				existing = p.BirthData.Location
			}
		}
		// повтор того же названия не геокодируется заново
		if existing != nil && strings.EqualFold(existing.City, value) {
			return false, nil
		}

		loc, err := s.resolveLocation(ctx, field, value, needsGeocoding)
		if err != nil {
			return false, err
		}
		if existing != nil && *existing == *loc {
			return false, nil
		}
		if field == FieldBirthCity {
			ensureBirthData(p).Location = loc
		} else {
			p.CurrentLocation = loc
		}
		return true, nil
	}

	return false, fmt.Errorf("%w: %s", domain.ErrInvalidField, field)
}

func (s *Service) resolveLocation(ctx context.Context, field Field, value string, needsGeocoding bool) (*domain.Location, error) {
	if !needsGeocoding {
		onboardingField := domain.FieldBirthLocation
		if field == FieldCurrentCity {
			onboardingField = domain.FieldCurrentLocation
		}
		return ParseCoordinates(onboardingField, value)
	}
	if s.geocoder == nil {
		return nil, &domain.GeocodingError{Query: value, Reason: "location lookup is not configured"}
	}
	loc, err := s.geocoder.Geocode(ctx, value)
	if err != nil {
		s.Log.Warn("failed to geocode location", "error", err, "field", field, "query", value)
		return nil, err
	}
	return loc, nil
}

// recomputeChart пересчитывает карту, если хватает данных; устаревшая карта не остаётся в профиле
func (s *Service) recomputeChart(ctx context.Context, p *domain.UserProfile, hadChart bool) ChartStatus {
	if !p.HasCompleteBirthData() {
		p.NatalChart = nil
		p.ChartComputedAt = nil
		return ChartPending
	}

	chart, err := s.charts.ComputeNatal(ctx, p.BirthData)
	if err != nil {
		s.Log.Error("failed to recompute natal chart", "error", err, "user_id", p.ID)
		p.NatalChart = nil
		p.ChartComputedAt = nil
		return ChartFailed
	}

	now := s.now().UTC()
	p.NatalChart = chart
	p.ChartComputedAt = &now
	if hadChart {
		return ChartRecomputed
	}
	return ChartCreated
}

func ensureBirthData(p *domain.UserProfile) *domain.BirthData {
	if p.BirthData == nil {
		p.BirthData = &domain.BirthData{}
	}
	return p.BirthData
}
