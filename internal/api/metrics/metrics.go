// Package metrics defines and registers all custom Prometheus metrics for
// the community auth core. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community_auth"

// ── Session metrics ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts handled by the session manager.
// Label:
//   - result: "success", "rejected" (bad credentials), or "stale" (discarded
//     by the staleness guard)
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success" or "rejected"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, labelled by result.",
	},
	[]string{"result"},
)

// SessionRestoresTotal counts session-restore attempts at startup.
// Label:
//   - result: "restored" (valid user data found), "empty" (nothing stored),
//     or "error" (storage read failed)
var SessionRestoresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_restores_total",
		Help:      "Total number of startup session restores, labelled by result.",
	},
	[]string{"result"},
)

// ── Store metrics ─────────────────────────────────────────────────────────────

// StoreCorruptionRecoveredTotal counts corrupt secure-store entries that
// were deleted on read.
// Label:
//   - key: the logical store key that was healed
var StoreCorruptionRecoveredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_corruption_recovered_total",
		Help:      "Total number of corrupt secure-store entries self-healed on read.",
	},
	[]string{"key"},
)

// ── Remote service metrics ────────────────────────────────────────────────────

// RemoteFallbackTotal counts calls served by the offline mock after the
// remote user service was unreachable.
// Label:
//   - operation: the remote operation that fell back (e.g. "login")
var RemoteFallbackTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_fallback_total",
		Help:      "Total number of remote calls served by the local mock fallback.",
	},
	[]string{"operation"},
)

// RemoteRequestDuration measures remote user-service call latency.
// Label:
//   - operation: the remote operation name
var RemoteRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_request_duration_seconds",
		Help:      "Duration of remote user-service calls, by operation.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation"},
)
