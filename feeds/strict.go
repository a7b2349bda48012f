package feeds

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"

	"feedboard/models"
)

// StrictParser parses documents with a real RSS/Atom parser and applies the
// same escaping and drop rules as PatternParser.
type StrictParser struct {
	parser *gofeed.Parser
}

func NewStrictParser() *StrictParser {
	return &StrictParser{
		parser: gofeed.NewParser(),
	}
}

func (p *StrictParser) Parse(doc string, src Source) []models.Post {
	feed, err := p.parser.ParseString(doc)
	if err != nil {
		log.WithFields(log.Fields{
			"url":   src.URL,
			"error": err,
		}).Warn("Failed to parse feed document")
		return nil
	}

	posts := make([]models.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		link := itemLink(feed, item)
		rawDate := item.Published
		if rawDate == "" {
			rawDate = item.Updated
		}

		if title == "" || link == "" || rawDate == "" {
			log.WithFields(log.Fields{
				"url":   src.URL,
				"title": title != "",
				"link":  link != "",
				"date":  rawDate != "",
			}).Warn("Dropping feed entry with missing fields")
			droppedEntries.WithLabelValues(src.Site).Inc()
			continue
		}

		posts = append(posts, models.Post{
			Title: Escape(title),
			Link:  Escape(link),
			Date:  itemDate(item),
			Site:  src.Site,
		})
	}

	return posts
}

// itemLink keys Atom entries by their id, like PatternParser does, and falls
// back to the guid for RSS items without a link.
func itemLink(feed *gofeed.Feed, item *gofeed.Item) string {
	guid := strings.TrimSpace(item.GUID)
	if feed.FeedType == "atom" && guid != "" {
		return guid
	}
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	return guid
}

func itemDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}
