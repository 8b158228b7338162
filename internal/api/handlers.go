package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/olympe-app/portfolio-service/internal/analytics"
	"github.com/olympe-app/portfolio-service/internal/cache"
	"github.com/olympe-app/portfolio-service/internal/database"
	"github.com/olympe-app/portfolio-service/internal/kafka"
	"github.com/olympe-app/portfolio-service/internal/models"
	"github.com/olympe-app/portfolio-service/internal/parse"
	"github.com/olympe-app/portfolio-service/internal/portfolio"
	"github.com/olympe-app/portfolio-service/internal/pricing"
	"github.com/olympe-app/portfolio-service/internal/summary"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db         *database.DB
	svc        *portfolio.Service
	scheduler  *portfolio.Scheduler
	finnhub    *pricing.Finnhub
	summarizer *summary.Client
	cache      *cache.Client
	producer   *kafka.Producer
	loc        *time.Location
}

// NewHandler creates a new Handler
func NewHandler(db *database.DB, svc *portfolio.Service, scheduler *portfolio.Scheduler,
	finnhub *pricing.Finnhub, summarizer *summary.Client, cacheClient *cache.Client,
	producer *kafka.Producer, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		db:         db,
		svc:        svc,
		scheduler:  scheduler,
		finnhub:    finnhub,
		summarizer: summarizer,
		cache:      cacheClient,
		producer:   producer,
		loc:        loc,
	}
}

// userID extracts the authenticated user from the request. Auth itself
// is delegated to the gateway in front of this service.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// Refresh handles POST /refresh: the cycle runs debounced so a burst of
// clicks costs one pass, but each caller waits for it and gets the
// number of holdings updated.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	updated, err := h.scheduler.TriggerRefresh(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// Backfill handles POST /instruments/{symbol}/backfill
func (h *Handler) Backfill(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	inserted, err := h.svc.BackfillHistory(r.Context(), symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

// SearchInstruments handles GET /instruments/search?q=
func (h *Handler) SearchInstruments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if len(query) < 2 {
		http.Error(w, "query must be at least 2 characters", http.StatusBadRequest)
		return
	}

	results, err := h.finnhub.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// RegisterInstrument handles POST /instruments: adds a symbol to the
// shared dictionary with its metadata. Buys create instruments lazily,
// but only registration attaches the asset class that allocation
// categorization falls back on.
func (h *Handler) RegisterInstrument(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol     string `json:"symbol"`
		Name       string `json:"name"`
		AssetClass string `json:"asset_class"`
		Currency   string `json:"currency"`
		Exchange   string `json:"exchange"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	inst := &models.Instrument{
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Name:       req.Name,
		AssetClass: models.AssetClass(req.AssetClass),
		Currency:   req.Currency,
		Exchange:   req.Exchange,
	}
	if inst.Name == "" {
		inst.Name = inst.Symbol
	}
	if err := h.db.CreateInstrument(inst); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusCreated, inst)
}

// InstrumentHistory handles GET /instruments/{symbol}/history?days=
func (h *Handler) InstrumentHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	days := 365
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	inst, err := h.db.GetInstrumentBySymbol(symbol)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "instrument not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	from := time.Now().In(h.loc).AddDate(0, 0, -days)
	history, err := h.db.GetPriceHistory(inst.ID, from)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// ListAccounts handles GET /accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}

	accounts, err := h.db.GetAccountsByUser(user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /accounts. Amounts arrive as strings so a
// French "1000,50" is accepted; parsing failures are a client error,
// never a silent zero.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}

	var req struct {
		Name          string `json:"name"`
		Type          string `json:"type"`
		Currency      string `json:"currency"`
		InitialAmount string `json:"initial_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	amount := decimal.Zero
	if req.InitialAmount != "" {
		parsed, err := parse.Amount(req.InitialAmount)
		if err != nil {
			http.Error(w, "invalid initial_amount", http.StatusBadRequest)
			return
		}
		amount = parsed
	}

	account := &models.Account{
		UserID:        user,
		Name:          req.Name,
		Type:          req.Type,
		Currency:      req.Currency,
		InitialAmount: amount,
		CurrentAmount: amount,
	}
	if err := h.db.CreateAccount(account); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// AccountHoldings handles GET /accounts/{id}/holdings
func (h *Handler) AccountHoldings(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}
	accountID := mux.Vars(r)["id"]

	account, err := h.db.GetAccountByID(accountID)
	if err != nil || account.UserID != user {
		http.Error(w, "account not found", http.StatusNotFound)
		return
	}

	holdings, err := h.db.GetHoldingsByAccount(accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, holdings)
}

// Buy handles POST /accounts/{id}/holdings/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}
	accountID := mux.Vars(r)["id"]

	var req struct {
		Symbol      string `json:"symbol"`
		Label       string `json:"label"`
		Quantity    string `json:"quantity"`
		Price       string `json:"price"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	quantity, err := parse.PositiveAmount(req.Quantity)
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)
		return
	}
	price, err := parse.PositiveAmount(req.Price)
	if err != nil {
		http.Error(w, "invalid price", http.StatusBadRequest)
		return
	}

	holding, err := h.svc.Buy(r.Context(), user, accountID, portfolio.BuyOrder{
		Symbol:      req.Symbol,
		Label:       req.Label,
		Quantity:    quantity,
		Price:       price,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, holding)
}

// Sell handles POST /holdings/{id}/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}
	holdingID := mux.Vars(r)["id"]

	var req struct {
		Quantity    string `json:"quantity"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quantity, err := parse.PositiveAmount(req.Quantity)
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)
		return
	}

	movement, err := h.svc.Sell(r.Context(), user, holdingID, quantity, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, movement)
}

// Movements handles GET /movements
func (h *Handler) Movements(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	movements, err := h.db.GetMovementsByUser(user, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

// Analytics handles GET /analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}

	report, err := h.buildReport(user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Summary handles POST /summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing X-User-ID header", http.StatusUnauthorized)
		return
	}

	report, err := h.buildReport(user)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	lines, err := h.summarizer.Summarize(r.Context(), report)
	if err != nil {
		if errors.Is(err, summary.ErrNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// buildReport gathers everything the analytics engine needs for a user
// and runs it.
func (h *Handler) buildReport(user string) (*analytics.Report, error) {
	accounts, err := h.db.GetAccountsByUser(user)
	if err != nil {
		return nil, err
	}
	holdings, err := h.db.GetHoldingsByUser(user)
	if err != nil {
		return nil, err
	}

	instrumentIDs := make([]string, 0, len(holdings))
	for _, hold := range holdings {
		instrumentIDs = append(instrumentIDs, hold.InstrumentID)
	}
	instruments, err := h.db.GetInstrumentsByIDs(instrumentIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(h.loc)
	dayStart, monthStart, ytdStart := analytics.WindowStarts(now)

	ref1d, err := h.db.GetFirstPricesSince(instrumentIDs, dayStart)
	if err != nil {
		return nil, err
	}
	ref30d, err := h.db.GetFirstPricesSince(instrumentIDs, monthStart)
	if err != nil {
		return nil, err
	}
	refYTD, err := h.db.GetFirstPricesSince(instrumentIDs, ytdStart)
	if err != nil {
		return nil, err
	}

	history, err := h.db.GetPortfolioHistory(user)
	if err != nil {
		return nil, err
	}

	return analytics.Build(analytics.Input{
		Accounts:    accounts,
		Holdings:    holdings,
		Instruments: instruments,
		Ref1D:       ref1d,
		Ref30D:      ref30d,
		RefYTD:      refYTD,
		History:     history,
		Now:         now,
	}), nil
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.producer != nil {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// respondServiceError maps portfolio service errors to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidPrice),
		errors.Is(err, portfolio.ErrInsufficientQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
