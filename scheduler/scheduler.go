// Package scheduler drives refresh cycles: fetch, merge, render and publish.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"feedboard/aggregator"
	"feedboard/snapshot"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedboard_refresh_cycles_total",
		Help: "The total number of refresh cycles by outcome",
	}, []string{"outcome"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedboard_refresh_duration_seconds",
		Help:    "Duration of refresh cycles",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	snapshotPages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedboard_snapshot_pages",
		Help: "The number of pages in the published snapshot",
	})
)

type State int32

const (
	Idle State = iota
	Fetching
	Merging
	Rendering
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Merging:
		return "merging"
	case Rendering:
		return "rendering"
	case Publishing:
		return "publishing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Scheduler struct {
	aggregator *aggregator.Aggregator
	builder    *snapshot.Builder
	publisher  *snapshot.Publisher
	feeds      []string
	interval   time.Duration

	// Held for the whole cycle so two cycles never run at once
	cycle sync.Mutex
	state atomic.Int32
}

func New(agg *aggregator.Aggregator, builder *snapshot.Builder, publisher *snapshot.Publisher, feeds []string, interval time.Duration) *Scheduler {
	return &Scheduler{
		aggregator: agg,
		builder:    builder,
		publisher:  publisher,
		feeds:      feeds,
		interval:   interval,
	}
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(state State) {
	s.state.Store(int32(state))
	log.WithFields(log.Fields{
		"state": state.String(),
	}).Debug("Refresh state")
}

// RunOnce performs one refresh cycle. On failure the previously published
// snapshot stays in place.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.cycle.Lock()
	defer s.cycle.Unlock()
	defer s.setState(Idle)

	start := time.Now()
	err := s.refresh(ctx)
	refreshDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		refreshTotal.WithLabelValues("error").Inc()
		return err
	}
	refreshTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Scheduler) refresh(ctx context.Context) error {
	s.setState(Fetching)
	batches := s.aggregator.Fetch(ctx, s.feeds)

	s.setState(Merging)
	res, err := s.aggregator.Merge(ctx, batches)
	if err != nil {
		return fmt.Errorf("aggregate feeds: %w", err)
	}

	s.setState(Rendering)
	snap, err := s.builder.Build(res)
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	s.setState(Publishing)
	s.publisher.Publish(snap)
	snapshotPages.Set(float64(snap.Len()))

	log.WithFields(log.Fields{
		"version": snap.Version,
		"posts":   len(res.Posts),
	}).Info("Published snapshot")

	return nil
}

// Loop waits one interval, refreshes, and repeats until ctx is done. The
// timer is re-armed only after a cycle has finished.
func (s *Scheduler) Loop(ctx context.Context) error {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			log.Info("Updating feeds")
			if err := s.RunOnce(ctx); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Error("Refresh failed")
			}
			timer.Reset(s.interval)
		}
	}
}

// Run refreshes immediately and then on every interval
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Initial refresh failed")
	}
	return s.Loop(ctx)
}
