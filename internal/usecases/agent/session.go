package agent

import (
	"sync"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/google/uuid"
)

// Session диалог одного подключения: история живёт только в памяти процесса
type Session struct {
	UserID         string
	ConversationID string

	mu         sync.Mutex
	history    []domain.Message
	transcript []domain.Message
	turns      int
	welcomed   bool
}

func NewSession(userID string) *Session {
	return &Session{UserID: userID, ConversationID: uuid.NewString()}
}

// History копия последних сообщений
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.history...)
}

// Turns число завершённых ходов пользователя
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// MessageCount сообщений за всю сессию, включая вытесненные из истории
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript)
}

// Transcript копия всего разговора с начала сессии
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.transcript...)
}

// Clear сбрасывает историю, идентификатор разговора меняется
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.transcript = nil
	s.turns = 0
	s.ConversationID = uuid.NewString()
}

// appendTurn дописывает ход: история обрезается до limit, transcript растёт без ограничения.
// Возвращает копию transcript
func (s *Session) appendTurn(user, assistant string, limit int) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	turn := []domain.Message{
		{Role: domain.RoleUser, Content: user},
		{Role: domain.RoleAssistant, Content: assistant},
	}
	s.history = append(s.history, turn...)
	if len(s.history) > limit {
		s.history = append([]domain.Message(nil), s.history[len(s.history)-limit:]...)
	}
	s.transcript = append(s.transcript, turn...)
	s.turns++
	return append([]domain.Message(nil), s.transcript...)
}
