// Package metrics provides Prometheus metrics for the galaxy daemon and
// the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Core daemon metrics.

	AgentEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_agent_events_total",
			Help: "Agent events drained from the stream, by type",
		},
		[]string{"type"},
	)

	FSEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_fs_events_total",
			Help: "Filesystem events drained from the watcher, by kind",
		},
		[]string{"kind"},
	)

	ArrivalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_agent_arrivals_total",
			Help: "Completed agent moves",
		},
	)

	ActiveAgents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galaxy_active_agents",
			Help: "Agents currently live in the registry",
		},
	)

	ModelNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galaxy_model_nodes",
			Help: "Node slots in the filesystem model, removed ones included",
		},
	)

	ReconcilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_gitignore_reconciles_total",
			Help: "Full gitignore reconciliation passes",
		},
	)

	WSReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_ws_reconnects_total",
			Help: "WebSocket reconnect attempts by the event client",
		},
	)

	// Relay metrics.

	RelayIngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_relay_ingest_total",
			Help: "Notifications accepted on the relay POST endpoints, by route",
		},
		[]string{"route"},
	)

	RelayBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_relay_broadcasts_total",
			Help: "Messages fanned out to WebSocket subscribers",
		},
	)

	RelayDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_relay_dropped_total",
			Help: "Messages dropped for slow subscribers",
		},
	)

	RelaySubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galaxy_relay_subscribers",
			Help: "Connected WebSocket subscribers",
		},
	)
)
