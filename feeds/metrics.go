package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedboard_fetch_errors_total",
		Help: "The total number of failed feed fetches",
	}, []string{"site"})

	droppedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedboard_dropped_entries_total",
		Help: "Feed entries dropped because a required field was missing",
	}, []string{"site"})
)
