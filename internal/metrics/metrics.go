// Package metrics exposes Prometheus metrics for the hotfolder daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	transfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotfolder_transfers_total",
			Help: "Total number of transfer attempts",
		},
		[]string{"mode", "result"},
	)

	transferBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hotfolder_transfer_bytes_total",
			Help: "Bytes copied by transfers that could not be done with a rename",
		},
		[]string{"mode"},
	)

	crossDeviceMoves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfolder_cross_device_moves_total",
			Help: "Moves that fell back to copy-then-delete",
		},
	)

	eventsObserved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfolder_watch_events_total",
			Help: "Creation events delivered by the watcher",
		},
	)

	watcherFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfolder_watcher_faults_total",
			Help: "Watcher goroutines that terminated unexpectedly",
		},
	)

	watcherOverflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hotfolder_watcher_overflows_total",
			Help: "Kernel queue overflows that dropped creation events",
		},
	)

	sessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hotfolder_session_state",
			Help: "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)
)

func RecordTransfer(mode, result string, bytes int64, crossDevice bool) {
	transfersTotal.WithLabelValues(mode, result).Inc()
	if bytes > 0 {
		transferBytes.WithLabelValues(mode).Add(float64(bytes))
	}
	if crossDevice {
		crossDeviceMoves.Inc()
	}
}

func RecordEvent() {
	eventsObserved.Inc()
}

func RecordWatcherFault() {
	watcherFaults.Inc()
}

func RecordOverflow() {
	watcherOverflows.Inc()
}

// SetSessionState marks state as current and clears every other known state.
func SetSessionState(state string, known ...string) {
	for _, s := range known {
		sessionState.WithLabelValues(s).Set(0)
	}
	sessionState.WithLabelValues(state).Set(1)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
