package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olympe-app/portfolio-service/internal/models"
)

// ---------------------------------------------------------------------------
// Mock Historizer
// ---------------------------------------------------------------------------

type mockHistorizer struct {
	mu    sync.Mutex
	calls []historizeCall
	err   error
}

type historizeCall struct {
	Symbol   string
	Price    decimal.Decimal
	Currency string
	Source   string
}

func (m *mockHistorizer) HistorizePrice(ctx context.Context, symbol string, price decimal.Decimal, currency, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, historizeCall{Symbol: symbol, Price: price, Currency: currency, Source: source})
	return nil
}

func (m *mockHistorizer) Calls() []historizeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]historizeCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// ---------------------------------------------------------------------------
// processMessage tests
// ---------------------------------------------------------------------------

func priceMessage(t *testing.T, event models.PriceEvent) kafkago.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafkago.Message{Value: payload}
}

func TestPriceConsumer_processMessage_PriceUpdated(t *testing.T) {
	h := &mockHistorizer{}
	consumer := &PriceConsumer{historizer: h}

	msg := priceMessage(t, models.PriceEvent{
		EventType: "PRICE_UPDATED",
		Source:    "binance",
		Timestamp: time.Now().Format(time.RFC3339),
		Data: models.PriceEventData{
			Symbol:   "btc-usd",
			Price:    "60123.45",
			Currency: "USD",
		},
	})

	require.NoError(t, consumer.processMessage(context.Background(), msg))

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "BTC-USD", calls[0].Symbol)
	assert.True(t, calls[0].Price.Equal(decimal.RequireFromString("60123.45")))
	assert.Equal(t, "USD", calls[0].Currency)
	assert.Equal(t, "binance", calls[0].Source)
}

func TestPriceConsumer_processMessage_CommaDecimal(t *testing.T) {
	h := &mockHistorizer{}
	consumer := &PriceConsumer{historizer: h}

	msg := priceMessage(t, models.PriceEvent{
		EventType: "PRICE_UPDATED",
		Data:      models.PriceEventData{Symbol: "EUNL.DE", Price: "101,5"},
	})

	require.NoError(t, consumer.processMessage(context.Background(), msg))

	calls := h.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Price.Equal(decimal.RequireFromString("101.5")))
	assert.Equal(t, "feed", calls[0].Source, "missing source defaults to feed")
}

func TestPriceConsumer_processMessage_BadPayloads(t *testing.T) {
	h := &mockHistorizer{}
	consumer := &PriceConsumer{historizer: h}

	tests := []struct {
		name  string
		event models.PriceEvent
	}{
		{"missing symbol", models.PriceEvent{
			EventType: "PRICE_UPDATED",
			Data:      models.PriceEventData{Price: "10"},
		}},
		{"unparseable price", models.PriceEvent{
			EventType: "PRICE_UPDATED",
			Data:      models.PriceEventData{Symbol: "AAPL", Price: "not-a-number"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := consumer.processMessage(context.Background(), priceMessage(t, tt.event))
			assert.Error(t, err)
		})
	}
	assert.Empty(t, h.Calls())
}

func TestPriceConsumer_processMessage_MalformedJSON(t *testing.T) {
	h := &mockHistorizer{}
	consumer := &PriceConsumer{historizer: h}

	err := consumer.processMessage(context.Background(), kafkago.Message{Value: []byte("{not json")})
	assert.Error(t, err)
	assert.Empty(t, h.Calls())
}

func TestPriceConsumer_processMessage_IgnoresUnknownEventType(t *testing.T) {
	h := &mockHistorizer{}
	consumer := &PriceConsumer{historizer: h}

	msg := priceMessage(t, models.PriceEvent{
		EventType: "SOMETHING_ELSE",
		Data:      models.PriceEventData{Symbol: "AAPL", Price: "10"},
	})

	assert.NoError(t, consumer.processMessage(context.Background(), msg))
	assert.Empty(t, h.Calls())
}
