package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store-level counters, labeled by column family. Exposed on the server's
// /metrics endpoint; harmless no-ops in CLI use.
var (
	openCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annokv_store_opens_total",
		Help: "Database opens by mode (ro/rw).",
	}, []string{"mode"})

	getCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annokv_store_gets_total",
		Help: "Point gets by column family.",
	}, []string{"cf"})

	putCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annokv_store_puts_total",
		Help: "Writes by column family.",
	}, []string{"cf"})

	iterCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "annokv_store_iterators_total",
		Help: "Iterators opened by column family.",
	}, []string{"cf"})

	flushCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "annokv_store_flushes_total",
		Help: "Memtable flushes (statistics-enabled stores only).",
	})

	compactionCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "annokv_store_compactions_total",
		Help: "Finished compactions (statistics-enabled stores only).",
	})
)
