package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"feedboard/models"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	maxDocumentSize     = 16 << 20
	userAgent           = "feedboard/1.0"
)

// HTTPFetcher downloads feed documents. Every request is bounded by the
// client timeout so one hung source cannot stall a refresh cycle.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// NewHTTPFetcherWithClient uses client as is, including its timeout
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > maxDocumentSize {
		return "", fmt.Errorf("read %s: %w", url, ErrTooLarge)
	}
	return string(body), nil
}

// FetchPosts fetches and parses one source. Failures are logged and yield no
// posts.
func FetchPosts(ctx context.Context, fetcher Fetcher, parser Parser, src Source) []models.Post {
	doc, err := fetcher.Fetch(ctx, src.URL)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   src.URL,
			"error": err,
		}).Warn("No posts found, fetch failed")
		fetchErrors.WithLabelValues(src.Site).Inc()
		return nil
	}
	return parser.Parse(doc, src)
}
