// Package metrics exposes board aggregates to Prometheus.
package metrics

import (
	"github.com/KevinKickass/railboard/internal/board"
	"github.com/prometheus/client_golang/prometheus"
)

type Board struct {
	circuits     *prometheus.GaugeVec
	unsynced     prometheus.Gauge
	mutations    *prometheus.CounterVec
	syncFailures prometheus.Counter
	version      prometheus.Gauge
}

// NewBoard creates the board collectors and registers them with reg.
func NewBoard(reg prometheus.Registerer, zone string) *Board {
	labels := prometheus.Labels{"zone": zone}
	b := &Board{
		circuits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "railboard",
			Name:        "circuits",
			Help:        "Top-level circuits on the board by status.",
			ConstLabels: labels,
		}, []string{"status"}),
		unsynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "railboard",
			Name:        "unsynced_keys",
			Help:        "Rows or order writes whose last persistence attempt failed.",
			ConstLabels: labels,
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "railboard",
			Name:        "mutations_total",
			Help:        "Board mutations by operation and outcome.",
			ConstLabels: labels,
		}, []string{"operation", "outcome"}),
		syncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "railboard",
			Name:        "sync_failures_total",
			Help:        "Writes that exhausted their retries.",
			ConstLabels: labels,
		}),
		version: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "railboard",
			Name:        "board_version",
			Help:        "Number of successful mutations since start.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(b.circuits, b.unsynced, b.mutations, b.syncFailures, b.version)
	return b
}

// Observe refreshes the gauges from the current counters.
func (b *Board) Observe(c board.Counters, version uint64) {
	b.circuits.WithLabelValues(string(board.StatusOK)).Set(float64(c.OK))
	b.circuits.WithLabelValues(string(board.StatusFaulty)).Set(float64(c.Faulty))
	b.circuits.WithLabelValues(string(board.StatusNil)).Set(float64(c.Nil))
	b.version.Set(float64(version))
}

func (b *Board) Mutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	b.mutations.WithLabelValues(operation, outcome).Inc()
}

func (b *Board) Unsynced(n int) {
	b.unsynced.Set(float64(n))
}

func (b *Board) SyncFailed() {
	b.syncFailures.Inc()
}
