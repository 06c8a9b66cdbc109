// Package metrics defines and registers all custom Prometheus metrics for the
// catalog API. It is the single source of truth for metric names, labels, and
// help strings. Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method: HTTP verb
//   - route: the registered route pattern (e.g. "/v1/items/:id")
//   - code: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status code.",
	},
	[]string{"method", "route", "code"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ── Persistence metrics ───────────────────────────────────────────────────────

// SessionOpsTotal counts persistence-session calls.
// Labels:
//   - entity: entity type (e.g. "item")
//   - op: session operation (find, insert, update, ...)
//   - result: "ok", "absent" (lookup found nothing) or "error"
var SessionOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_operations_total",
		Help:      "Total number of persistence session operations.",
	},
	[]string{"entity", "op", "result"},
)

// SessionOpDuration measures persistence-session latency.
var SessionOpDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_operation_duration_seconds",
		Help:      "Duration of persistence session operations.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"entity", "op"},
)

// OptimisticLockConflictsTotal counts updates rejected for a stale version.
var OptimisticLockConflictsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "optimistic_lock_conflicts_total",
		Help:      "Total number of updates rejected because the record version was stale.",
	},
	[]string{"entity"},
)

// ── Idempotency metrics ───────────────────────────────────────────────────────

// IdempotentReplaysTotal counts create requests answered from an earlier
// request with the same Idempotency-Key.
var IdempotentReplaysTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of create requests replayed by Idempotency-Key.",
	},
	[]string{"resource"},
)
