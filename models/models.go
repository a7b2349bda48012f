package models

import (
	"sort"
	"time"
)

// Post is one syndication entry. Title and Link are already escaped for
// embedding in markup.
type Post struct {
	Title string    `json:"title"`
	Link  string    `json:"link"`
	Date  time.Time `json:"date"`
	Site  string    `json:"site"`
}

// HasDate reports whether the upstream date could be parsed
func (p Post) HasDate() bool {
	return !p.Date.IsZero()
}

// History is the durable collection of every post seen so far
type History struct {
	Posts      []Post    `json:"posts"`
	LastUpdate time.Time `json:"last_update"`
}

// SortByDate orders posts newest first. Posts with equal dates keep their
// relative order and posts without a date sort last.
func SortByDate(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})
}
