// Package metrics defines and registers all custom Prometheus metrics for
// the Element backend. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at init time via
// promauto; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "element"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// AuthFailuresTotal counts rejected requests at the authorization gate.
// Label:
//   - reason: "missing_header", "invalid_header", "invalid_token"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of requests rejected by the auth middleware.",
	},
	[]string{"reason"},
)

// RateLimitedTotal counts requests rejected by the rate limiter.
// Label:
//   - route: the throttled route path
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429 by the rate limiter.",
	},
	[]string{"route"},
)

// ── Ledger metrics ────────────────────────────────────────────────────────────

// TransactionsProcessedTotal counts ledger processing attempts by outcome.
// Labels:
//   - type: "deposit", "fee", "payout"
//   - status: terminal transaction status after processing
var TransactionsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_processed_total",
		Help:      "Total number of escrow transactions processed, by type and resulting status.",
	},
	[]string{"type", "status"},
)

// PayoutFailuresTotal counts payouts that did not complete.
// Label:
//   - reason: "insufficient_funds" or "gateway"
var PayoutFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_failures_total",
		Help:      "Total number of payout transactions that failed.",
	},
	[]string{"reason"},
)

// TransactionProcessingDuration measures end-to-end ledger processing time.
// Label:
//   - type: transaction type
var TransactionProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transaction_processing_duration_seconds",
		Help:      "Duration of ledger processing including escrow updates and gateway calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"type"},
)

// MilestonePaymentsReleasedTotal counts successful milestone payouts.
var MilestonePaymentsReleasedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "milestone_payments_released_total",
		Help:      "Total number of milestone payments released exactly once.",
	},
)
