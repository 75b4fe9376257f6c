// Package metrics holds the Prometheus instruments shared by the API and
// worker binaries. Everything registers on the default registry exposed at
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarksTotal counts mark-attendance calls by outcome:
	// marked, duplicate, error.
	MarksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_marks_total",
		Help: "Mark-attendance calls by outcome.",
	}, []string{"outcome"})

	// RosterMisses counts ledger writes whose roster increment found no
	// roster row. A rising value means students are checking in without
	// being seeded.
	RosterMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_roster_misses_total",
		Help: "Check-ins with no matching roster entry.",
	})

	// WeatherEnrichments counts worker weather lookups by outcome:
	// enriched, skipped, error.
	WeatherEnrichments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_weather_enrichments_total",
		Help: "Worker weather enrichment attempts by outcome.",
	}, []string{"outcome"})
)
