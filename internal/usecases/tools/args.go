package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParamType тип параметра в JSON Schema
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
)

// Param параметр инструмента
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Enum        []string
	Default     any
}

func (p Param) schema() map[string]any {
	s := map[string]any{
		"type":        string(p.Type),
		"description": p.Description,
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	if p.Default != nil {
		s["default"] = p.Default
	}
	return s
}

// Args проверенные аргументы вызова
type Args map[string]any

func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) Float(name string) (float64, bool) {
	v, ok := a[name].(float64)
	return v, ok
}

func (a Args) Int(name string) (int, bool) {
	v, ok := a[name].(float64)
	return int(v), ok
}

func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// argumentError неверный или отсутствующий аргумент
type argumentError struct {
	Name   string
	Reason string
}

func (e *argumentError) Error() string {
	return fmt.Sprintf("argument %q %s", e.Name, e.Reason)
}

// coerceArgs проверяет аргументы по описанию параметров и приводит типы.
// Модели иногда присылают числа строками, такие значения принимаются
func coerceArgs(params []Param, raw map[string]any) (Args, error) {
	out := make(Args, len(params))
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil || v == "" {
			if p.Required {
				return nil, &argumentError{Name: p.Name, Reason: "is required"}
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}

		converted, err := coerce(p.Type, v)
		if err != nil {
			return nil, &argumentError{Name: p.Name, Reason: fmt.Sprintf("must be a %s", p.Type)}
		}
		if len(p.Enum) > 0 {
			if s, _ := converted.(string); !contains(p.Enum, s) {
				return nil, &argumentError{Name: p.Name, Reason: "must be one of " + strings.Join(p.Enum, ", ")}
			}
		}
		out[p.Name] = converted
	}
	return out, nil
}

func coerce(t ParamType, v any) (any, error) {
	switch t {
	case TypeString:
		switch x := v.(type) {
		case string:
			return strings.TrimSpace(x), nil
		case float64, int, bool:
			return fmt.Sprint(x), nil
		}
	case TypeNumber, TypeInteger:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case json.Number:
			return x.Float64()
		case string:
			return strconv.ParseFloat(strings.TrimSpace(x), 64)
		}
	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(x))
		}
	}
	return nil, fmt.Errorf("unexpected %T", v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
