package agent

import (
	"context"
	"regexp"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
)

// EventSink получатель событий хода: WebSocket, CLI или MCP
type EventSink interface {
	Send(ctx context.Context, event domain.Event) error
}

// SinkFunc адаптер функции к EventSink
type SinkFunc func(ctx context.Context, event domain.Event) error

func (f SinkFunc) Send(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Discard отбрасывает все события
var Discard EventSink = SinkFunc(func(context.Context, domain.Event) error { return nil })

var wordChunkRe = regexp.MustCompile(`\S+\s*`)

// Chunks режет текст по словам, пробелы остаются у предыдущего слова
func Chunks(text string) []string {
	return wordChunkRe.FindAllString(strings.TrimLeft(text, " \t\r\n"), -1)
}
