// Package feeds fetches remote syndication documents and turns them into posts
package feeds

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"feedboard/models"
)

// ErrNoSite is returned for source URLs without an extractable host
var ErrNoSite = errors.New("no site in source url")

// ErrTooLarge is returned for documents over the fetch size limit
var ErrTooLarge = errors.New("document too large")

var siteRe = regexp.MustCompile(`^https://([\s\S]*?)/`)

// Source is one configured feed URL and the site derived from it
type Source struct {
	URL  string
	Site string
}

// NewSource derives the site of url: the text between the leading "https://"
// and the next "/", lowercased.
func NewSource(url string) (Source, error) {
	site, err := SiteOf(url)
	if err != nil {
		return Source{}, err
	}
	return Source{URL: url, Site: site}, nil
}

func SiteOf(url string) (string, error) {
	m := siteRe.FindStringSubmatch(url)
	if m == nil || m[1] == "" {
		return "", ErrNoSite
	}
	return strings.ToLower(m[1]), nil
}

// Parser converts a raw feed document into posts. Implementations never fail;
// entries that cannot be used are skipped.
type Parser interface {
	Parse(doc string, src Source) []models.Post
}

// Fetcher retrieves the raw document of a source
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

const (
	PatternMode = "pattern"
	StrictMode  = "strict"
)

// NewParser returns the parser for mode, PatternMode or StrictMode
func NewParser(mode string) (Parser, error) {
	switch mode {
	case PatternMode, "":
		return NewPatternParser(), nil
	case StrictMode:
		return NewStrictParser(), nil
	default:
		return nil, errors.New("unknown parser mode: " + mode)
	}
}
