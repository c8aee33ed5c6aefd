package domain

import "time"

// EventType тип события, которое агент отправляет клиенту
type EventType string

const (
	EventWelcome     EventType = "welcome"
	EventTyping      EventType = "typing"
	EventToolCall    EventType = "tool_call"
	EventStreamStart EventType = "stream_start"
	EventStreamChunk EventType = "stream_chunk"
	EventStreamEnd   EventType = "stream_end"
	EventResponse    EventType = "response"
	EventError       EventType = "error"
)

const (
	ToolStatusStarted   = "started"
	ToolStatusCompleted = "completed"
)

// Event конверт события для транспорта
type Event struct {
	Type            EventType `json:"type"`
	Content         string    `json:"content,omitempty"`
	Tool            string    `json:"tool,omitempty"`
	Status          string    `json:"status,omitempty"`
	NeedsOnboarding *bool     `json:"needs_onboarding,omitempty"`
}

// MemoryEventType тип события памяти в Kafka
type MemoryEventType string

const (
	MemoryEventStored       MemoryEventType = "memory.stored"
	MemoryEventConsolidated MemoryEventType = "memory.consolidated"
	MemoryEventErased       MemoryEventType = "user.erased"
)

// MemoryEvent событие об изменении памяти пользователя
type MemoryEvent struct {
	Type       MemoryEventType `json:"type"`
	UserID     string          `json:"user_id"`
	MemoryID   string          `json:"memory_id,omitempty"`
	MemoryType MemoryType      `json:"memory_type,omitempty"`
	Removed    int             `json:"removed,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ErasureRequest запрос на удаление данных пользователя из Kafka
type ErasureRequest struct {
	UserID      string    `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason,omitempty"`
}
