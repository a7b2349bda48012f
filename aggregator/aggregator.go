// Package aggregator runs the fetch, parse and merge stages of a refresh cycle
package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"feedboard/db"
	"feedboard/feeds"
	"feedboard/models"
)

// ErrNoStore is returned when merging without a history store
var ErrNoStore = errors.New("aggregator has no store")

// Batch holds the posts parsed from one source, sorted newest first. Seq is
// the position of the source in the configured list.
type Batch struct {
	Seq    int
	Source feeds.Source
	Posts  []models.Post
}

// Result is the outcome of one aggregation
type Result struct {
	// Every post in the history store, newest first
	Posts []models.Post

	// Non-empty batches of this cycle in configured order
	Batches []Batch
}

type Aggregator struct {
	fetcher feeds.Fetcher
	parser  feeds.Parser
	store   *db.Store
}

func New(fetcher feeds.Fetcher, parser feeds.Parser, store *db.Store) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		parser:  parser,
		store:   store,
	}
}

// Sources resolves the site of every url. Urls without a site are logged and
// left out.
func Sources(urls []string) []feeds.Source {
	sources := make([]feeds.Source, 0, len(urls))
	for _, url := range urls {
		src, err := feeds.NewSource(url)
		if err != nil {
			log.WithFields(log.Fields{
				"url":   url,
				"error": err,
			}).Warn("Skipping source")
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

// Fetch fetches and parses every source concurrently. Batches are delivered
// in completion order; the channel is closed once all sources are done.
func (a *Aggregator) Fetch(ctx context.Context, urls []string) <-chan Batch {
	sources := Sources(urls)
	out := make(chan Batch, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(seq int, src feeds.Source) {
			defer wg.Done()
			posts := feeds.FetchPosts(ctx, a.fetcher, a.parser, src)
			models.SortByDate(posts)

			log.WithFields(log.Fields{
				"url":   src.URL,
				"posts": len(posts),
			}).Debug("Fetched source")

			out <- Batch{Seq: seq, Source: src, Posts: posts}
		}(i, src)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// Merge consumes batches and merges them into the store one at a time, in
// sequence order regardless of arrival order. The store is persisted after
// every merged batch. Empty batches are skipped.
func (a *Aggregator) Merge(ctx context.Context, batches <-chan Batch) (*Result, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}

	result := &Result{}
	pending := make(map[int]Batch)
	next := 0

	for batch := range batches {
		pending[batch.Seq] = batch
		for {
			b, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			a.mergeBatch(b, result)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Posts = a.store.Posts()
	models.SortByDate(result.Posts)

	log.WithFields(log.Fields{
		"posts":   len(result.Posts),
		"sources": len(result.Batches),
	}).Info("Aggregated feeds")

	return result, nil
}

func (a *Aggregator) mergeBatch(b Batch, result *Result) {
	if len(b.Posts) == 0 {
		return
	}
	result.Batches = append(result.Batches, b)

	if _, err := a.store.Add(b.Posts); err != nil {
		log.WithFields(log.Fields{
			"url":   b.Source.URL,
			"path":  a.store.Path(),
			"error": err,
		}).Error("Failed to persist history")
	}
}

// Run fetches all urls and merges the results into the store
func (a *Aggregator) Run(ctx context.Context, urls []string) (*Result, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	return a.Merge(ctx, a.Fetch(ctx, urls))
}

// Collect fetches and parses all urls without touching the store. Batches are
// returned in configured order, empty ones included.
func (a *Aggregator) Collect(ctx context.Context, urls []string) []Batch {
	var batches []Batch
	for b := range a.Fetch(ctx, urls) {
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].Seq < batches[j].Seq
	})
	return batches
}
