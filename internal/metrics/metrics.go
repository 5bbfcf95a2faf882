// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postybirb"

var (
	BusCallbackFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_callback_failures_total",
			Help:      "Change callbacks that returned an error or panicked.",
		},
		[]string{"reason"},
	)

	BusCommitsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_commits_published_total",
			Help:      "Committed change sets dispatched to subscribers.",
		},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_sent_total",
			Help:      "Snapshot frames pushed to live clients.",
		},
		[]string{"event"},
	)

	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Currently connected websocket clients.",
		},
	)

	WatcherFiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_files_total",
			Help:      "Files handled by directory watcher passes.",
		},
		[]string{"outcome"},
	)

	PostOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_outcomes_total",
			Help:      "Per-destination post results.",
		},
		[]string{"website", "status"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
