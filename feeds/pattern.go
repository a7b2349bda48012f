package feeds

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"

	"feedboard/models"
)

// Atom documents are rewritten to RSS tag names before extraction
var atomToRSS = strings.NewReplacer(
	"<entry>", "<item>",
	"</entry>", "</item>",
	"<id>", "<link>",
	"</id>", "</link>",
	"<updated>", "<pubDate>",
	"</updated>", "</pubDate>",
)

var (
	itemRe    = regexp.MustCompile(`<item>([\s\S]*?)</item>`)
	titleRe   = regexp.MustCompile(`<title>([\s\S]*?)</title>`)
	linkRe    = regexp.MustCompile(`<link>([\s\S]*?)</link>`)
	pubDateRe = regexp.MustCompile(`<pubDate>([\s\S]*?)</pubDate>`)
)

// PatternParser extracts items with non-greedy tag patterns. It is not an XML
// parser: nested or escaped markup inside an item can confuse it.
type PatternParser struct{}

func NewPatternParser() *PatternParser {
	return &PatternParser{}
}

func (p *PatternParser) Parse(doc string, src Source) []models.Post {
	doc = atomToRSS.Replace(doc)

	var posts []models.Post
	for _, item := range itemRe.FindAllStringSubmatch(doc, -1) {
		block := item[1]

		title, hasTitle := firstGroup(titleRe, block)
		if hasTitle && strings.Contains(title, "CDATA") {
			title = strings.Replace(title, "<![CDATA[", "", 1)
			title = strings.Replace(title, "]]>", "", 1)
		}
		link, hasLink := firstGroup(linkRe, block)
		date, hasDate := firstGroup(pubDateRe, block)

		if !hasTitle || !hasLink || !hasDate {
			log.WithFields(log.Fields{
				"url":   src.URL,
				"title": hasTitle,
				"link":  hasLink,
				"date":  hasDate,
			}).Warn("Dropping feed entry with missing fields")
			droppedEntries.WithLabelValues(src.Site).Inc()
			continue
		}

		posts = append(posts, models.Post{
			Title: Escape(title),
			Link:  Escape(link),
			Date:  ParseDate(date),
			Site:  src.Site,
		})
	}

	return posts
}

// firstGroup returns the first capture of re in s. Empty captures count as
// missing.
func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
