package db

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	historyPosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedboard_history_posts",
		Help: "The number of posts held in the history store",
	})

	postsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedboard_posts_added_total",
		Help: "The total number of new posts merged into the history store",
	})

	persistErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedboard_persist_errors_total",
		Help: "The total number of failed history writes",
	})
)
