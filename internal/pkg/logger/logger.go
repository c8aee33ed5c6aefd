package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Encoding string `envconfig:"ENCODING" default:"console"` // console или json
	Level    string `envconfig:"LEVEL" default:"info"`
	// Output stdout или stderr; пусто: json в stdout, console в stderr
	Output    string `envconfig:"OUTPUT"`
	AddSource bool   `envconfig:"ADD_SOURCE" default:"false"`
}

// New логгер приложения, невалидная конфигурация считается ошибкой запуска
func New(app string, cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	return NewWithWriter(app, cfg, output(cfg))
}

// NewWithWriter то же, что New, но с явным приёмником
func NewWithWriter(app string, cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch encoding(cfg) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "console":
		handler = slog.NewTextHandler(w, opts)
	default:
		panic(fmt.Errorf("invalid logger config: encoding %s is not supported", cfg.Encoding))
	}

	return slog.New(handler).With("app", app)
}

func encoding(cfg *Config) string {
	if cfg.Encoding == "" {
		return "console"
	}
	return strings.ToLower(cfg.Encoding)
}

// output stdout у json, чтобы логи собирал коллектор; консольный вывод не смешивается с диалогом
func output(cfg *Config) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	case "":
		if encoding(cfg) == "json" {
			return os.Stdout
		}
		return os.Stderr
	default:
		panic(fmt.Errorf("invalid logger config: output %s is not supported", cfg.Output))
	}
}

// parseLevel парсит строковый уровень в slog.Level
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Errorf("invalid logger config: level %s is not supported", level))
	}
}
