// Package kafka connects the service to the event bus: a consumer
// ingesting external price-feed events and a producer publishing
// movement events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/models"
)

// Historizer routes an externally observed price into the same
// dedup-guarded history as provider lookups.
type Historizer interface {
	HistorizePrice(ctx context.Context, symbol string, price decimal.Decimal, currency, source string) error
}

// PriceConsumer consumes PRICE_UPDATED events from the price feed topic.
type PriceConsumer struct {
	reader     *kafka.Reader
	historizer Historizer
}

// NewPriceConsumer creates a Kafka consumer for the price feed topic.
func NewPriceConsumer(brokers []string, topic, groupID string, historizer Historizer) *PriceConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-prices",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &PriceConsumer{
		reader:     reader,
		historizer: historizer,
	}
}

// Start begins consuming messages from Kafka.
func (c *PriceConsumer) Start(ctx context.Context) error {
	log.Printf("Starting price consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Price consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading price message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing price message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message.
func (c *PriceConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.PriceEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	switch event.EventType {
	case "PRICE_UPDATED":
		return c.handlePriceUpdated(ctx, event)
	default:
		log.Printf("Ignoring unknown price event type: %s", event.EventType)
		return nil
	}
}

func (c *PriceConsumer) handlePriceUpdated(ctx context.Context, event models.PriceEvent) error {
	symbol := strings.ToUpper(strings.TrimSpace(event.Data.Symbol))
	if symbol == "" {
		return fmt.Errorf("price event without symbol")
	}

	// Feeds are inconsistent about number encoding; a comma decimal
	// separator shows up in practice.
	raw := strings.ReplaceAll(strings.TrimSpace(event.Data.Price), ",", ".")
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("unparseable price %q for %s: %w", event.Data.Price, symbol, err)
	}

	source := event.Source
	if source == "" {
		source = "feed"
	}
	if err := c.historizer.HistorizePrice(ctx, symbol, price, event.Data.Currency, source); err != nil {
		return fmt.Errorf("failed to historize %s: %w", symbol, err)
	}

	log.Printf("Historized feed price: %s = %s", symbol, price)
	return nil
}

// Close closes the Kafka consumer.
func (c *PriceConsumer) Close() error {
	return c.reader.Close()
}
