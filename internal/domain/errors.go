package domain

import (
	"errors"
	"fmt"
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrChartNotReady   = errors.New("natal chart is not available yet")
	ErrInvalidField    = errors.New("invalid profile field")
	ErrDailyLimit      = errors.New("daily usage limit reached")
	ErrExportDisabled  = errors.New("data export storage is not configured")
)

// ParseError значение от пользователя, которое не удалось разобрать
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not understand %s %q", e.Field, e.Value)
}

// GeocodingError место, которое не удалось однозначно найти
type GeocodingError struct {
	Query  string
	Reason string
}

func (e *GeocodingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("could not find location %q", e.Query)
	}
	return fmt.Sprintf("could not find location %q: %s", e.Query, e.Reason)
}
