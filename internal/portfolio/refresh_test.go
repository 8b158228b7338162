package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/olympe-app/portfolio-service/internal/pricing"
)

type mockPriceSource struct {
	quotes map[string]pricing.Quote
	calls  []string
}

func (m *mockPriceSource) Resolve(ctx context.Context, symbol string) (pricing.Quote, error) {
	m.calls = append(m.calls, symbol)
	if q, ok := m.quotes[symbol]; ok {
		return q, nil
	}
	return pricing.Quote{}, pricing.ErrUnresolved
}

type mockHistorySource struct {
	history []pricing.HistoricalPrice
	err     error
}

func (m *mockHistorySource) History(ctx context.Context, symbol string) ([]pricing.HistoricalPrice, error) {
	return m.history, m.err
}

// ---------------------------------------------------------------------------
// RecordPrice / HistorizePrice
// ---------------------------------------------------------------------------

func TestRecordPriceDedupsByDay(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	quote := pricing.Quote{Price: dec("101"), Currency: "USD", Source: "finnhub"}

	inserted, err := svc.RecordPrice("i-1", quote)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same instrument, same day: silently skipped, first price stands.
	inserted, err = svc.RecordPrice("i-1", pricing.Quote{Price: dec("999"), Source: "eodhd"})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestRecordPriceBucketsDayInAppTimezone(t *testing.T) {
	store := newMockStore()
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	svc := NewService(store, nil, nil, nil, nil, paris)
	// 23:30 UTC on June 1 is already June 2 in Paris.
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 1, 23, 30, 0, 0, time.UTC)
	}

	_, err = svc.RecordPrice("i-1", pricing.Quote{Price: dec("10"), Source: "finnhub"})
	require.NoError(t, err)
	assert.True(t, store.observed["i-1"]["2025-06-02"])
}

func TestHistorizePriceRejectsNonPositive(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	err := svc.HistorizePrice(context.Background(), "BTC-USD", decimal.Zero, "", "feed")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestHistorizePriceUpdatesValuations(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	err := svc.HistorizePrice(context.Background(), "BTC-USD", dec("60000"), "USD", "feed")
	require.NoError(t, err)

	inst := store.instruments["BTC-USD"]
	require.NotNil(t, inst)
	assert.True(t, store.valuations[inst.ID].Equal(dec("60000")))
	assert.True(t, store.observed[inst.ID]["2025-06-01"])
}

// ---------------------------------------------------------------------------
// RefreshPrices
// ---------------------------------------------------------------------------

func TestRefreshPricesUpdatesHoldings(t *testing.T) {
	store := newMockStore()
	store.open = map[string]string{"i-1": "AAPL"}
	store.holdings["h-1"] = &models.Holding{
		ID: "h-1", UserID: "u1", InstrumentID: "i-1", Quantity: dec("10"),
	}
	svc := newTestService(store)
	svc.prices = &mockPriceSource{quotes: map[string]pricing.Quote{
		"AAPL": {Price: dec("120"), Source: "finnhub"},
	}}

	updated, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, updated)
	h := store.holdings["h-1"]
	assert.True(t, h.CurrentPrice.Equal(dec("120")))
	assert.True(t, h.CurrentValue.Equal(dec("1200")))
	assert.True(t, store.observed["i-1"]["2025-06-01"], "resolved price must be historized")
}

func TestRefreshPricesSkipsUnresolvedInstrument(t *testing.T) {
	store := newMockStore()
	store.open = map[string]string{"i-1": "AAPL", "i-2": "DEADBEEF"}
	store.holdings["h-1"] = &models.Holding{
		ID: "h-1", UserID: "u1", InstrumentID: "i-1", Quantity: dec("10"),
	}
	store.holdings["h-2"] = &models.Holding{
		ID: "h-2", UserID: "u1", InstrumentID: "i-2", Quantity: dec("3"),
		CurrentPrice: dec("7"), CurrentValue: dec("21"),
	}
	svc := newTestService(store)
	svc.prices = &mockPriceSource{quotes: map[string]pricing.Quote{
		"AAPL": {Price: dec("120"), Source: "finnhub"},
	}}

	updated, err := svc.RefreshPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, updated)
	// The unresolved instrument keeps its stale cached price.
	h := store.holdings["h-2"]
	assert.True(t, h.CurrentPrice.Equal(dec("7")))
	assert.True(t, h.CurrentValue.Equal(dec("21")))
}

func TestRefreshPricesStopsOnCancelledContext(t *testing.T) {
	store := newMockStore()
	store.open = map[string]string{"i-1": "AAPL"}
	svc := newTestService(store)
	src := &mockPriceSource{}
	svc.prices = src

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RefreshPrices(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

// ---------------------------------------------------------------------------
// BackfillHistory
// ---------------------------------------------------------------------------

func TestBackfillInsertsOnlyMissingDays(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	inst, _ := store.FindOrCreateInstrument("EUNL.DE")
	store.observed[inst.ID] = map[string]bool{"2025-05-28": true}

	svc.history = &mockHistorySource{history: []pricing.HistoricalPrice{
		{Day: "2025-05-27", Price: dec("100")},
		{Day: "2025-05-28", Price: dec("101")},
		{Day: "2025-05-29", Price: dec("102")},
	}}

	inserted, err := svc.BackfillHistory(context.Background(), "EUNL.DE")
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.True(t, store.observed[inst.ID]["2025-05-27"])
	assert.True(t, store.observed[inst.ID]["2025-05-29"])
}

func TestBackfillIsIdempotent(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	svc.history = &mockHistorySource{history: []pricing.HistoricalPrice{
		{Day: "2025-05-27", Price: dec("100")},
		{Day: "2025-05-28", Price: dec("101")},
	}}

	first, err := svc.BackfillHistory(context.Background(), "EUNL.DE")
	require.NoError(t, err)
	second, err := svc.BackfillHistory(context.Background(), "EUNL.DE")
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 0, second)
}

func TestBackfillAbortsOnBatchError(t *testing.T) {
	store := newMockStore()
	store.batchErr = errors.New("deadlock")
	svc := newTestService(store)
	svc.history = &mockHistorySource{history: []pricing.HistoricalPrice{
		{Day: "2025-05-27", Price: dec("100")},
	}}

	_, err := svc.BackfillHistory(context.Background(), "EUNL.DE")
	assert.Error(t, err)
	assert.Equal(t, 1, store.batchCalls)
}

// ---------------------------------------------------------------------------
// SnapshotDaily
// ---------------------------------------------------------------------------

func TestSnapshotDailyCombinesHoldingsAndStandaloneAccounts(t *testing.T) {
	store := newMockStore()
	store.users = []string{"u1"}
	store.accounts["acc-1"] = &models.Account{ID: "acc-1", UserID: "u1", Type: "PEA"}
	store.accounts["acc-2"] = &models.Account{
		ID: "acc-2", UserID: "u1", Type: "Livret", CurrentAmount: dec("1000"),
	}
	store.holdings["h-1"] = &models.Holding{
		ID: "h-1", UserID: "u1", AccountID: "acc-1", InstrumentID: "i-1",
		Quantity: dec("10"), CurrentPrice: dec("121"), CurrentValue: dec("1210"),
	}
	svc := newTestService(store)

	require.NoError(t, svc.SnapshotDaily(context.Background()))

	require.Len(t, store.snapshots, 1)
	snap := store.snapshots[0]
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, "2025-06-01", snap.Day)
	// 1210 of holdings plus the 1000 cash account; acc-1 itself must not
	// be double counted.
	assert.True(t, snap.TotalValue.Equal(dec("2210")), "got %s", snap.TotalValue)
}
