package kafka

import (
	"context"

	"github.com/admin/astro-agent/internal/domain"
)

// IKafkaProducer интерфейс для отправки сообщений в Kafka
type IKafkaProducer interface {
	// Send отправляет произвольное сообщение
	Send(ctx context.Context, key string, value []byte) error
	// Close закрывает producer
	Close() error
}

// IEventPublisher публикация событий памяти
type IEventPublisher interface {
	PublishMemoryEvent(ctx context.Context, event domain.MemoryEvent) error
}
