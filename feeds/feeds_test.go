package feeds_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedboard/feeds"
	"feedboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example</title>
<item>
<title>First post</title>
<link>https://blog.example.com/first</link>
<pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
</item>
<item>
<title><![CDATA[Second post]]></title>
<link>https://blog.example.com/second</link>
<pubDate>Tue, 03 Jan 2006 15:04:05 +0000</pubDate>
</item>
</channel>
</rss>`

const atomDoc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Example</title>
<entry>
<title>First post</title>
<id>https://blog.example.com/first</id>
<updated>2006-01-02T15:04:05Z</updated>
</entry>
<entry>
<title><![CDATA[Second post]]></title>
<id>https://blog.example.com/second</id>
<updated>2006-01-03T15:04:05Z</updated>
</entry>
</feed>`

var src = feeds.Source{URL: "https://blog.example.com/feed.xml", Site: "blog.example.com"}

func TestSiteOf(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		err      error
	}{
		{
			name:     "host with path",
			url:      "https://blog.example.com/feed.xml",
			expected: "blog.example.com",
		},
		{
			name:     "host is lowercased",
			url:      "https://Blog.Example.COM/rss",
			expected: "blog.example.com",
		},
		{
			name: "no trailing slash",
			url:  "https://blog.example.com",
			err:  feeds.ErrNoSite,
		},
		{
			name: "https url embedded in another scheme",
			url:  "ftp://x/?u=https://evil.example/",
			err:  feeds.ErrNoSite,
		},
		{
			name: "plain http",
			url:  "http://blog.example.com/feed",
			err:  feeds.ErrNoSite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, err := feeds.SiteOf(tt.url)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, site)
		})
	}
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;", feeds.Escape("<script>"))
	assert.Equal(t, "a&#x3D;b", feeds.Escape("a=b"))
	assert.Equal(t, "&quot;&#39;&#x60;&#x2F;", feeds.Escape("\"'`/"))
	assert.Equal(t, "Tom &amp; Jerry", feeds.Escape("Tom &amp; Jerry"))
}

func TestPatternParserRSS(t *testing.T) {
	posts := feeds.NewPatternParser().Parse(rssDoc, src)
	require.Len(t, posts, 2)

	assert.Equal(t, "First post", posts[0].Title)
	assert.Equal(t, "https:&#x2F;&#x2F;blog.example.com&#x2F;first", posts[0].Link)
	assert.Equal(t, "blog.example.com", posts[0].Site)
	assert.True(t, posts[0].Date.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))

	assert.Equal(t, "Second post", posts[1].Title, "CDATA wrapper is stripped")
}

func TestPatternParserAtomMatchesRSS(t *testing.T) {
	parser := feeds.NewPatternParser()
	rss := parser.Parse(rssDoc, src)
	atom := parser.Parse(atomDoc, src)

	require.Len(t, atom, len(rss))
	for i := range rss {
		assert.Equal(t, rss[i].Title, atom[i].Title)
		assert.Equal(t, rss[i].Link, atom[i].Link)
		assert.Equal(t, rss[i].Site, atom[i].Site)
		assert.True(t, rss[i].Date.Equal(atom[i].Date), "dates differ at %d", i)
	}
}

func TestPatternParserDropsIncompleteEntries(t *testing.T) {
	doc := `<rss><channel>
<item><title>One</title><link>https://a.example/1</link><pubDate>2024-01-01T00:00:00Z</pubDate></item>
<item><title>Two</title><pubDate>2024-01-02T00:00:00Z</pubDate></item>
<item><title>Three</title><link>https://a.example/3</link><pubDate>2024-01-03T00:00:00Z</pubDate></item>
<item><title></title><link>https://a.example/4</link><pubDate>2024-01-04T00:00:00Z</pubDate></item>
</channel></rss>`

	posts := feeds.NewPatternParser().Parse(doc, src)
	require.Len(t, posts, 2)
	assert.Equal(t, "One", posts[0].Title)
	assert.Equal(t, "Three", posts[1].Title)
}

func TestPatternParserEscapesTitle(t *testing.T) {
	doc := `<item><title>&lt;b&gt; <script>alert(1)</script> a=b</title><link>https://a.example/x?y=1</link><pubDate>2024-01-01</pubDate></item>`

	posts := feeds.NewPatternParser().Parse(doc, src)
	require.Len(t, posts, 1)
	assert.Equal(t, "&lt;b&gt; &lt;script&gt;alert(1)&lt;&#x2F;script&gt; a&#x3D;b", posts[0].Title)
	assert.Equal(t, "https:&#x2F;&#x2F;a.example&#x2F;x?y&#x3D;1", posts[0].Link)
}

func TestPatternParserKeepsUnparseableDates(t *testing.T) {
	doc := `<item><title>T</title><link>https://a.example/1</link><pubDate>sometime last week</pubDate></item>`

	posts := feeds.NewPatternParser().Parse(doc, src)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].HasDate())
}

func TestPatternParserGarbage(t *testing.T) {
	assert.Empty(t, feeds.NewPatternParser().Parse("not a feed <item> at all", src))
	assert.Empty(t, feeds.NewPatternParser().Parse("", src))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc1123z", "Mon, 02 Jan 2006 15:04:05 +0000", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"rfc1123z single digit day", "Mon, 2 Jan 2006 15:04:05 +0000", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"rfc3339", "2006-01-02T15:04:05Z", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"rfc3339 with spaces", "  2006-01-02T15:04:05Z\n", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"date only", "2006-01-02", time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"us eastern", "Wed, 03 Jan 2024 10:00:00 EST", time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)},
		{"us pacific daylight", "Wed, 03 Jul 2024 10:00:00 PDT", time.Date(2024, 7, 3, 17, 0, 0, 0, time.UTC)},
		{"gmt", "Wed, 03 Jan 2024 10:00:00 GMT", time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)},
		{"garbage", "yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(feeds.ParseDate(tt.input)), "got %v", feeds.ParseDate(tt.input))
		})
	}
}

func TestParseDateZoneOrdering(t *testing.T) {
	eastern := feeds.ParseDate("Wed, 03 Jan 2024 10:00:00 EST")
	utcNoon := feeds.ParseDate("Wed, 03 Jan 2024 12:00:00 +0000")
	assert.True(t, eastern.After(utcNoon))
}

func TestStrictParserMatchesPatternParser(t *testing.T) {
	strict := feeds.NewStrictParser()
	for _, doc := range []string{rssDoc, atomDoc} {
		posts := strict.Parse(doc, src)
		require.Len(t, posts, 2)
		assert.Equal(t, "First post", posts[0].Title)
		assert.Equal(t, "Second post", posts[1].Title)
		assert.Equal(t, "https:&#x2F;&#x2F;blog.example.com&#x2F;first", posts[0].Link)
		assert.True(t, posts[0].Date.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)))
	}
}

func TestParsersKeyAtomEntriesByID(t *testing.T) {
	doc := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Example</title>
<entry>
<title>Linked post</title>
<id>tag:blog.example.com,2024:1</id>
<link href="https://blog.example.com/linked"/>
<updated>2024-01-02T15:04:05Z</updated>
</entry>
</feed>`

	strict := feeds.NewStrictParser().Parse(doc, src)
	pattern := feeds.NewPatternParser().Parse(doc, src)
	require.Len(t, strict, 1)
	require.Len(t, pattern, 1)
	assert.Equal(t, pattern[0].Link, strict[0].Link)
	assert.Equal(t, "tag:blog.example.com,2024:1", strict[0].Link)
}

func TestStrictParserInvalidDocument(t *testing.T) {
	assert.Empty(t, feeds.NewStrictParser().Parse("definitely not xml", src))
}

func TestNewParser(t *testing.T) {
	p, err := feeds.NewParser(feeds.PatternMode)
	require.NoError(t, err)
	assert.IsType(t, &feeds.PatternParser{}, p)

	p, err = feeds.NewParser(feeds.StrictMode)
	require.NoError(t, err)
	assert.IsType(t, &feeds.StrictParser{}, p)

	_, err = feeds.NewParser("xslt")
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			w.Write([]byte(rssDoc))
		case "/huge":
			w.Write(bytes.Repeat([]byte("a"), 16<<20+1))
		case "/slow":
			time.Sleep(500 * time.Millisecond)
			w.Write([]byte(rssDoc))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fetcher := feeds.NewHTTPFetcher(100 * time.Millisecond)

	doc, err := fetcher.Fetch(context.Background(), srv.URL+"/feed")
	require.NoError(t, err)
	assert.Equal(t, rssDoc, doc)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err, "non-success status is a failure")

	_, err = feeds.NewHTTPFetcher(feeds.DefaultFetchTimeout).Fetch(context.Background(), srv.URL+"/huge")
	assert.ErrorIs(t, err, feeds.ErrTooLarge)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/slow")
	assert.Error(t, err, "requests are time-bounded")
}

type stubFetcher map[string]string

func (s stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	doc, ok := s[url]
	if !ok {
		return "", assert.AnError
	}
	return doc, nil
}

func TestFetchPosts(t *testing.T) {
	fetcher := stubFetcher{src.URL: rssDoc}
	parser := feeds.NewPatternParser()

	posts := feeds.FetchPosts(context.Background(), fetcher, parser, src)
	assert.Len(t, posts, 2)

	missing := feeds.Source{URL: "https://down.example/feed", Site: "down.example"}
	assert.Equal(t, []models.Post(nil), feeds.FetchPosts(context.Background(), fetcher, parser, missing))
}
