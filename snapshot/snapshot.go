// Package snapshot builds the set of servable pages and publishes it as one
// atomically replaceable unit.
package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeCSS  = "text/css; charset=utf-8"
)

// Document is a gzip-compressed response body
type Document struct {
	ContentType string
	Body        []byte
}

// NewDocument compresses body
func NewDocument(contentType string, body []byte) (Document, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return Document{}, fmt.Errorf("compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return Document{}, fmt.Errorf("compress document: %w", err)
	}
	return Document{ContentType: contentType, Body: buf.Bytes()}, nil
}

// Decompress returns the uncompressed body
func (d Document) Decompress() ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(d.Body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Snapshot maps request paths to documents. It must not be modified once
// published.
type Snapshot struct {
	Version   string
	CreatedAt time.Time
	pages     map[string]Document
}

func New(pages map[string]Document) *Snapshot {
	return &Snapshot{
		Version:   uuid.NewString(),
		CreatedAt: time.Now(),
		pages:     pages,
	}
}

func (s *Snapshot) Lookup(path string) (Document, bool) {
	doc, ok := s.pages[path]
	return doc, ok
}

// Paths returns the servable paths in lexical order
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.pages))
	for p := range s.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Snapshot) Len() int {
	return len(s.pages)
}

// Publisher holds the snapshot currently being served
type Publisher struct {
	current atomic.Pointer[Snapshot]
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish replaces the served snapshot with s in a single step
func (p *Publisher) Publish(s *Snapshot) {
	p.current.Store(s)
}

// Current returns the served snapshot, nil before the first Publish
func (p *Publisher) Current() *Snapshot {
	return p.current.Load()
}
