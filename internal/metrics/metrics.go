// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts price-provider lookups by provider and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_provider_requests_total",
		Help: "Price provider lookups by provider and outcome.",
	}, []string{"provider", "outcome"})

	// ProviderLatency observes price-provider request durations.
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_provider_request_seconds",
		Help:    "Price provider request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// RefreshCycles counts completed price refresh cycles.
	RefreshCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_refresh_cycles_total",
		Help: "Completed price refresh cycles.",
	})

	// RefreshHoldingsUpdated reports holdings updated by the last refresh.
	RefreshHoldingsUpdated = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_refresh_holdings_updated",
		Help: "Holdings updated during the last refresh cycle.",
	})

	// PricesHistorized counts historized price observations by source.
	PricesHistorized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_prices_historized_total",
		Help: "Historized price observations by source and dedup outcome.",
	}, []string{"source", "outcome"})

	// HTTPDuration observes API request durations by route and method.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_http_request_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})
)
