// Package metrics exposes Prometheus instrumentation for the daemon.
//
// Usage:
//
//	metrics.RecordRefresh(err == nil, elapsed)
//	metrics.ObserveSnapshot(snap)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dm/tdarrmon/internal/model"
)

var (
	// RefreshCyclesTotal counts refresh cycles by outcome.
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdarrmon_refresh_cycles_total",
			Help: "Total number of refresh cycles by outcome",
		},
		[]string{"outcome"},
	)

	// RefreshDuration tracks the wall-clock duration of refresh cycles.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tdarrmon_refresh_duration_seconds",
			Help:    "Duration of refresh cycle fan-outs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// StructuralChangesTotal counts snapshots that introduced new node keys.
	StructuralChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tdarrmon_structural_changes_total",
			Help: "Total number of refresh cycles that discovered new nodes",
		},
	)

	// CommandErrorsTotal counts failed relayed commands by operation.
	CommandErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tdarrmon_command_errors_total",
			Help: "Total number of failed relayed commands by operation",
		},
		[]string{"op"},
	)

	// SnapshotNodes reports the node count of the retained snapshot.
	SnapshotNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tdarrmon_snapshot_nodes",
			Help: "Number of nodes in the retained snapshot",
		},
	)

	// SnapshotLibraries reports the library count of the retained snapshot.
	SnapshotLibraries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tdarrmon_snapshot_libraries",
			Help: "Number of libraries in the retained snapshot, including the aggregate",
		},
	)

	// SnapshotStagedFiles reports the staged file count of the retained snapshot.
	SnapshotStagedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tdarrmon_snapshot_staged_files",
			Help: "Number of staged files in the retained snapshot",
		},
	)

	// ServerAvailable is 1 while the last refresh cycle succeeded.
	ServerAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tdarrmon_server_available",
			Help: "Whether the most recent refresh cycle succeeded (1) or failed (0)",
		},
	)
)

// RecordRefresh records one completed refresh cycle.
func RecordRefresh(ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	RefreshCyclesTotal.WithLabelValues(outcome).Inc()
	RefreshDuration.Observe(elapsed.Seconds())
	if ok {
		ServerAvailable.Set(1)
	} else {
		ServerAvailable.Set(0)
	}
}

// ObserveSnapshot updates the snapshot gauges after a successful cycle.
func ObserveSnapshot(snap *model.Snapshot) {
	if snap == nil {
		return
	}
	SnapshotNodes.Set(float64(len(snap.Nodes)))
	SnapshotLibraries.Set(float64(len(snap.Libraries)))
	SnapshotStagedFiles.Set(float64(snap.StagedCount))
}

// RecordCommandError counts one failed relayed command.
func RecordCommandError(op string) {
	CommandErrorsTotal.WithLabelValues(op).Inc()
}

// RecordStructuralChange counts a cycle that discovered new nodes.
func RecordStructuralChange() {
	StructuralChangesTotal.Inc()
}
