package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/olympe-app/portfolio-service/internal/models"
)

// Producer publishes movement events to the movements topic, keyed by
// user so one user's movements stay ordered.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a Kafka producer for movement events.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// PublishMovement emits a MOVEMENT_RECORDED event. Consumers are
// advisory; holdings stay the source of truth either way.
func (p *Producer) PublishMovement(ctx context.Context, m *models.Movement) error {
	event := models.MovementEvent{
		EventType: "MOVEMENT_RECORDED",
		Source:    "portfolio-service",
		Timestamp: time.Now().Format(time.RFC3339),
		Movement:  m,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal movement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(m.UserID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write movement event: %w", err)
	}
	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
