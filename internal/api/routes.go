package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olympe-app/portfolio-service/internal/metrics"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(observeRequests)

	// Prices
	api.HandleFunc("/refresh", handler.Refresh).Methods("POST")
	api.HandleFunc("/instruments", handler.RegisterInstrument).Methods("POST")
	api.HandleFunc("/instruments/search", handler.SearchInstruments).Methods("GET")
	api.HandleFunc("/instruments/{symbol}/backfill", handler.Backfill).Methods("POST")
	api.HandleFunc("/instruments/{symbol}/history", handler.InstrumentHistory).Methods("GET")

	// Accounts and holdings
	api.HandleFunc("/accounts", handler.ListAccounts).Methods("GET")
	api.HandleFunc("/accounts", handler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts/{id}/holdings", handler.AccountHoldings).Methods("GET")
	api.HandleFunc("/accounts/{id}/holdings/buy", handler.Buy).Methods("POST")
	api.HandleFunc("/holdings/{id}/sell", handler.Sell).Methods("POST")
	api.HandleFunc("/movements", handler.Movements).Methods("GET")

	// Analytics
	api.HandleFunc("/analytics", handler.Analytics).Methods("GET")
	api.HandleFunc("/summary", handler.Summary).Methods("POST")

	return r
}

// observeRequests records request durations per route template.
func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
