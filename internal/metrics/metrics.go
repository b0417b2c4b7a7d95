// Package metrics holds the Prometheus collectors for bidding, auction
// lifecycle and notification dispatch. All collectors register with the
// default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auction"

// BidsPlacedTotal counts committed bids.
var BidsPlacedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_placed_total",
		Help:      "Total number of bids committed.",
	},
)

// BidsRejectedTotal counts refused bids.
// Label:
//   - kind: rejection kind (validation, precondition, conflict, ...)
var BidsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_rejected_total",
		Help:      "Total number of bids refused, by rejection kind.",
	},
	[]string{"kind"},
)

// AuctionsFinishedTotal counts auctions leaving the active state.
// Labels:
//   - status: "ended" or "cancelled"
//   - trigger: "admin", "expiry" or "admin_sweep"
var AuctionsFinishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auctions_finished_total",
		Help:      "Total number of auctions that reached a terminal status.",
	},
	[]string{"status", "trigger"},
)

// AdminActionsTotal counts audited admin mutations by action type.
var AdminActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admin_actions_total",
		Help:      "Total number of admin actions recorded, by action type.",
	},
	[]string{"action_type"},
)

// SecurityEventsTotal counts rejected privileged attempts.
var SecurityEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_total",
		Help:      "Total number of rejected privileged attempts, by action type.",
	},
	[]string{"action_type"},
)

// SweepRunsTotal counts expiry sweeps.
// Label:
//   - result: "ok" or "partial" (at least one auction failed to end)
var SweepRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Total number of expiry sweeps, by result.",
	},
	[]string{"result"},
)

// SweepDuration measures one expiry sweep.
var SweepDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of an expiry sweep.",
		Buckets:   prometheus.DefBuckets,
	},
)

// NotificationFailuresTotal counts notices that could not be handed to the bus.
// Label:
//   - kind: "outbid", "bid_stopped", "auction_ended" or "admin_action_completed"
var NotificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of post-commit notifications that failed to dispatch.",
	},
	[]string{"kind"},
)
