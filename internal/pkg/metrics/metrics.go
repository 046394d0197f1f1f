// Package metrics holds the Prometheus collectors of the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger ─────────────────────────────────────────────────────────────────

// SessionsStarted counts sessions opened.
var SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "sessions",
	Name:      "started_total",
	Help:      "Total play sessions started.",
})

// SessionsClosed counts sessions leaving the active state, by outcome (ended, archived).
var SessionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "sessions",
	Name:      "closed_total",
	Help:      "Total play sessions closed, by resulting status.",
}, []string{"status"})

// SettlementConflicts counts settlements refused because the session was no longer active.
var SettlementConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "sessions",
	Name:      "settlement_conflicts_total",
	Help:      "Settlements rejected because the session was already closed.",
})

// PointCardCost sums the point-card cost of settled sessions in real currency.
var PointCardCost = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "sessions",
	Name:      "point_card_cost_total",
	Help:      "Point-card cost of settled sessions, in real currency.",
})

// TransactionsRecorded counts stored transactions by direction.
var TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "transactions",
	Name:      "recorded_total",
	Help:      "Total transactions recorded, by type.",
}, []string{"type"})

// ImportedRecords counts records handled by the data import, by collection and result.
var ImportedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "import",
	Name:      "records_total",
	Help:      "Records handled by the data import, by collection and result.",
}, []string{"collection", "result"})

// DashboardDuration observes the time to load and aggregate a dashboard.
var DashboardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ledger",
	Subsystem: "dashboard",
	Name:      "compute_seconds",
	Help:      "Time to load records and aggregate one dashboard.",
	Buckets:   prometheus.DefBuckets,
})

// ─── Transport ──────────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern, method and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "API requests by route, method and status.",
}, []string{"route", "method", "status"})

// HTTPDuration observes API latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ledger",
	Subsystem: "http",
	Name:      "request_seconds",
	Help:      "API request latency by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// BotCommands counts handled bot commands.
var BotCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Subsystem: "bot",
	Name:      "commands_total",
	Help:      "Bot commands handled, by command.",
}, []string{"command"})
