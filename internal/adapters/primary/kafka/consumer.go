package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/IBM/sarama"

	kafkaAdapter "github.com/admin/astro-agent/internal/adapters/secondary/kafka"
	"github.com/admin/astro-agent/internal/domain"
	kafkaPorts "github.com/admin/astro-agent/internal/ports/kafka"
)

const (
	handleAttempts      = 3
	handleBackoff       = 500 * time.Millisecond
	maxReconnectBackoff = 30 * time.Second
)

// Consumer реализация Kafka consumer
type Consumer struct {
	consumer  sarama.ConsumerGroup
	cfg       *kafkaAdapter.Config
	handler   kafkaPorts.MessageHandler
	closeOnce sync.Once
	log       *slog.Logger
}

// NewConsumer создаёт новый Kafka consumer
func NewConsumer(cfg *kafkaAdapter.Config, handler kafkaPorts.MessageHandler, log *slog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	cfg.ApplySecurity(config)

	consumer, err := sarama.NewConsumerGroup(cfg.GetBrokers(), cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log.Info("kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"consumer_group", cfg.ConsumerGroup,
	)

	return &Consumer{
		consumer: consumer,
		cfg:      cfg,
		handler:  handler,
		log:      log,
	}, nil
}

// Start читает топик до отмены контекста; ошибки брокера не останавливают сервис, consumer переподключается
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		log:     c.log,
		topic:   c.cfg.Topic,
		backoff: handleBackoff,
	}

	topics := []string{c.cfg.Topic}
	backoff := time.Second
	for {
		err := c.consumer.Consume(ctx, topics, handler)
		if ctx.Err() != nil || errors.Is(err, sarama.ErrClosedConsumerGroup) {
			c.log.Info("kafka consumer stopping", "topic", c.cfg.Topic)
			return nil
		}
		if err == nil {
			// ребаланс, сессия завершилась штатно
			backoff = time.Second
			continue
		}

		c.log.Error("error from consumer, reconnecting",
			"error", err,
			"topic", c.cfg.Topic,
			"backoff", backoff,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxReconnectBackoff)
	}
}

// Close закрывает consumer, повторный вызов ничего не делает
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if closeErr := c.consumer.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close kafka consumer: %w", closeErr)
			return
		}
		c.log.Info("kafka consumer closed", "topic", c.cfg.Topic)
	})
	return err
}

// consumerGroupHandler реализует sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler kafkaPorts.MessageHandler
	log     *slog.Logger
	topic   string
	backoff time.Duration
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session setup", "topic", h.topic)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session cleanup", "topic", h.topic)
	return nil
}

// ConsumeClaim обрабатывает сообщения из Kafka
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if message == nil {
				continue
			}

			if h.process(session.Context(), message) {
				session.MarkMessage(message, "")
			}
		}
	}
}

// process true, если offset можно закоммитить: сообщение обработано или заведомо не обработается
func (h *consumerGroupHandler) process(ctx context.Context, message *sarama.ConsumerMessage) bool {
	key := string(message.Key)

	var err error
	for attempt := 1; attempt <= handleAttempts; attempt++ {
		err = h.handler.HandleMessage(ctx, key, message.Value)
		if err == nil {
			return true
		}
		// бизнес-ошибка уже залогирована обработчиком, повтор не поможет
		if domain.IsBusinessError(err) {
			return true
		}
		if attempt == handleAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(h.backoff * time.Duration(attempt)):
		}
	}

	h.log.Error("failed to handle kafka message",
		"error", err,
		"topic", message.Topic,
		"key", key,
		"partition", message.Partition,
		"offset", message.Offset,
		"attempts", handleAttempts,
	)
	return false
}
