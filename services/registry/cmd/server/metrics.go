package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_ops_total",
		Help: "Ledger operations by kind and result.",
	}, []string{"op", "result"})

	eventsJournaled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_events_journaled_total",
		Help: "Events written to the journal store.",
	})

	journalErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registry_journal_errors_total",
		Help: "Failed journal writes.",
	})
)

func countOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	opsTotal.WithLabelValues(op, result).Inc()
}
