package usecase

import (
	"context"

	"github.com/admin/astro-agent/internal/usecases/agent"
)

// IChatAgent ход диалога для транспортов: WebSocket, CLI
type IChatAgent interface {
	Welcome(ctx context.Context, sess *agent.Session, sink agent.EventSink) (string, bool, error)
	HandleMessage(ctx context.Context, sess *agent.Session, text string, sink agent.EventSink) (string, error)
	EndSession(ctx context.Context, sess *agent.Session, flush bool)
}

// ITokenValidator проверка токена сессии, возвращает идентификатор пользователя
type ITokenValidator interface {
	Validate(token string) (string, error)
}
