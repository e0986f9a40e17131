// Package metrics defines and registers all custom Prometheus metrics for the
// patient monitoring portal. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package init
// via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rpm"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid" (bad credentials) or "error" (store failure)
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// GuardDenialsTotal counts requests rejected by an access guard.
// Labels:
//   - guard: "authenticated" or "role"
//   - mode: "api" (JSON response) or "browser" (redirect)
var GuardDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_denials_total",
		Help:      "Total number of requests denied by an access guard.",
	},
	[]string{"guard", "mode"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionResolutionsTotal counts session cookie resolutions.
// Label:
//   - result: "hit", "miss", "expired", "anonymous" (no cookie) or "error"
var SessionResolutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_resolutions_total",
		Help:      "Total number of session resolutions, by result.",
	},
	[]string{"result"},
)

// SessionStoreErrorsTotal counts session store failures seen by the circuit breaker.
// Label:
//   - op: "get", "set", "touch", "delete" or "sweep"
var SessionStoreErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_store_errors_total",
		Help:      "Total number of failed session store operations.",
	},
	[]string{"op"},
)

// SessionStoreBreakerState reports the session store breaker state
// (0 = closed, 1 = half-open, 2 = open).
var SessionStoreBreakerState = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_store_breaker_state",
		Help:      "Current session store circuit breaker state (0 closed, 1 half-open, 2 open).",
	},
)

// SessionsSweptTotal counts expired sessions removed by the background sweeper.
var SessionsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total number of expired sessions removed by the sweeper.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsTotal counts audit events by outcome.
// Label:
//   - result: "written", "failed" (repository error) or "dropped" (queue full)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by outcome.",
	},
	[]string{"result"},
)
