// Package portfolio holds the write-side business logic: buying and
// selling holdings, historizing resolved prices, refreshing cached
// valuations and snapshotting daily portfolio values.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/database"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/olympe-app/portfolio-service/internal/pricing"
)

var (
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrInsufficientQuantity = errors.New("sell quantity exceeds held quantity")
)

// Store is the persistence surface the service needs, implemented by
// *database.DB.
type Store interface {
	FindOrCreateInstrument(symbol string) (*models.Instrument, error)
	GetAccountByID(id string) (*models.Account, error)
	GetAccountsByUser(userID string) ([]*models.Account, error)
	ListUserIDs() ([]string, error)

	GetHoldingByID(id string) (*models.Holding, error)
	GetHoldingForInstrument(userID, accountID, instrumentID string) (*models.Holding, error)
	GetHoldingsByUser(userID string) ([]*models.Holding, error)
	GetOpenInstruments() (map[string]string, error)
	ApplyBuy(h *models.Holding, m *models.Movement, isNew bool) error
	ApplySell(h *models.Holding, m *models.Movement, deleteHolding bool) error
	UpdateHoldingValuation(instrumentID string, price decimal.Decimal) (int, error)

	InsertPriceObservation(obs *models.PriceObservation) (bool, error)
	InsertPriceBatch(observations []*models.PriceObservation) (int, error)
	GetObservedDays(instrumentID string) (map[string]bool, error)
	UpsertPortfolioSnapshot(s *models.PortfolioSnapshot) error
}

// PriceSource resolves one current price per symbol.
type PriceSource interface {
	Resolve(ctx context.Context, symbol string) (pricing.Quote, error)
}

// HistorySource provides full daily price history for backfills.
type HistorySource interface {
	History(ctx context.Context, symbol string) ([]pricing.HistoricalPrice, error)
}

// EventPublisher pushes movement events to the bus. Publishing is
// advisory: a failure is logged, never surfaced to the caller.
type EventPublisher interface {
	PublishMovement(ctx context.Context, m *models.Movement) error
}

// PriceNotifier broadcasts fresh prices to live subscribers.
type PriceNotifier interface {
	PublishPriceUpdate(ctx context.Context, symbol string, price decimal.Decimal) error
}

// Service wires the store, the price chain and the event bus together.
type Service struct {
	store    Store
	prices   PriceSource
	history  HistorySource
	events   EventPublisher
	notifier PriceNotifier
	loc      *time.Location
	now      func() time.Time
}

// NewService builds the portfolio service. history, events and notifier
// may be nil; loc is the timezone used for day bucketing.
func NewService(store Store, prices PriceSource, history HistorySource, events EventPublisher, notifier PriceNotifier, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		prices:   prices,
		history:  history,
		events:   events,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// BuyOrder is a validated purchase request.
type BuyOrder struct {
	Symbol      string
	Label       string
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Description string
}

// Buy records a purchase. An existing holding of the same instrument in
// the same account is averaged up: the new cost basis is the
// quantity-weighted mean of the old basis and the buy price. The cached
// valuation is refreshed at the buy price; the next refresh cycle will
// overwrite it with a market price.
func (s *Service) Buy(ctx context.Context, userID, accountID string, order BuyOrder) (*models.Holding, error) {
	if !order.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if !order.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	acct, err := s.store.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if acct.UserID != userID {
		return nil, database.ErrNotFound
	}

	symbol := strings.ToUpper(strings.TrimSpace(order.Symbol))
	inst, err := s.store.FindOrCreateInstrument(symbol)
	if err != nil {
		return nil, err
	}

	h, err := s.store.GetHoldingForInstrument(userID, accountID, inst.ID)
	isNew := errors.Is(err, database.ErrNotFound)
	if err != nil && !isNew {
		return nil, err
	}

	if isNew {
		h = &models.Holding{
			ID:           uuid.NewString(),
			UserID:       userID,
			AccountID:    accountID,
			InstrumentID: inst.ID,
			Quantity:     order.Quantity,
			AvgBuyPrice:  order.Price,
			AssetLabel:   order.Label,
		}
	} else {
		oldCost := h.Quantity.Mul(h.AvgBuyPrice)
		newCost := order.Quantity.Mul(order.Price)
		newQty := h.Quantity.Add(order.Quantity)
		h.AvgBuyPrice = oldCost.Add(newCost).Div(newQty)
		h.Quantity = newQty
		if order.Label != "" {
			h.AssetLabel = order.Label
		}
	}
	h.CurrentPrice = order.Price
	h.CurrentValue = h.Quantity.Mul(order.Price)

	m := &models.Movement{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   accountID,
		Type:        models.MovementBuy,
		Amount:      order.Quantity.Mul(order.Price),
		UnitPrice:   order.Price,
		Quantity:    order.Quantity,
		Description: order.Description,
		OccurredAt:  s.now(),
	}

	if err := s.store.ApplyBuy(h, m, isNew); err != nil {
		return nil, fmt.Errorf("failed to apply buy: %w", err)
	}
	s.publishMovement(ctx, m)
	return h, nil
}

// Sell records a sale of part or all of a holding. The sale is valued at
// the cached current price, falling back to the cost basis when no price
// has been resolved yet. The average buy price of the remainder is left
// untouched: realized performance lives in the movement, not the holding.
func (s *Service) Sell(ctx context.Context, userID, holdingID string, quantity decimal.Decimal, description string) (*models.Movement, error) {
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}

	h, err := s.store.GetHoldingByID(holdingID)
	if err != nil {
		return nil, err
	}
	if h.UserID != userID {
		return nil, database.ErrNotFound
	}
	if quantity.GreaterThan(h.Quantity) {
		return nil, ErrInsufficientQuantity
	}

	unit := h.CurrentPrice
	if unit.IsZero() {
		unit = h.AvgBuyPrice
	}

	remaining := h.Quantity.Sub(quantity)
	deleteHolding := !remaining.IsPositive()
	h.Quantity = remaining
	h.CurrentValue = remaining.Mul(unit)

	m := &models.Movement{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   h.AccountID,
		HoldingID:   h.ID,
		Type:        models.MovementSell,
		Amount:      quantity.Mul(unit),
		UnitPrice:   unit,
		Quantity:    quantity,
		Description: description,
		OccurredAt:  s.now(),
	}

	if err := s.store.ApplySell(h, m, deleteHolding); err != nil {
		return nil, fmt.Errorf("failed to apply sell: %w", err)
	}
	s.publishMovement(ctx, m)
	return m, nil
}

func (s *Service) publishMovement(ctx context.Context, m *models.Movement) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMovement(ctx, m); err != nil {
		log.Printf("failed to publish %s movement %s: %v", m.Type, m.ID, err)
	}
}
