package snapshot

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"feedboard/aggregator"
	"feedboard/assets"
	"feedboard/models"
	"feedboard/render"
)

// Builder renders an aggregation result into a snapshot
type Builder struct {
	renderer     *render.Renderer
	postsPerPage int
	stylesheet   string
}

func NewBuilder(renderer *render.Renderer, postsPerPage int, stylesheetPath string) *Builder {
	return &Builder{
		renderer:     renderer,
		postsPerPage: postsPerPage,
		stylesheet:   stylesheetPath,
	}
}

// Build produces /css, one /<site> page per site with posts in this cycle,
// /<n> for every index page and / as an alias of /0. The stylesheet is read
// from disk on every build.
func (b *Builder) Build(res *aggregator.Result) (*Snapshot, error) {
	pages := make(map[string]Document)

	bySite := lo.GroupBy(lo.FlatMap(res.Batches, func(batch aggregator.Batch, _ int) []models.Post {
		return batch.Posts
	}), func(p models.Post) string {
		return p.Site
	})
	for site, posts := range bySite {
		models.SortByDate(posts)
		if err := b.addPage(pages, "/"+site, posts, 0, 0); err != nil {
			return nil, err
		}
	}

	count, boundary := render.Paginate(len(res.Posts), b.postsPerPage)
	for i, chunk := range render.Pages(res.Posts, b.postsPerPage) {
		if err := b.addPage(pages, "/"+strconv.Itoa(i), chunk, i, boundary); err != nil {
			return nil, err
		}
	}

	first := res.Posts
	if len(first) > b.postsPerPage {
		first = first[:b.postsPerPage]
	}
	if err := b.addPage(pages, "/", first, 0, boundary); err != nil {
		return nil, err
	}

	css, err := assets.LoadStylesheet(b.stylesheet)
	if err != nil {
		log.WithFields(log.Fields{
			"path":  b.stylesheet,
			"error": err,
		}).Warn("Falling back to the default stylesheet")
		css = assets.DefaultStylesheet()
	}
	doc, err := NewDocument(ContentTypeCSS, css)
	if err != nil {
		return nil, err
	}
	pages["/css"] = doc

	snap := New(pages)
	log.WithFields(log.Fields{
		"version":    snap.Version,
		"pages":      len(pages),
		"indexPages": count,
		"sites":      len(bySite),
	}).Info("Built snapshot")

	return snap, nil
}

func (b *Builder) addPage(pages map[string]Document, path string, posts []models.Post, index, total int) error {
	html, err := b.renderer.Render(posts, index, total)
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	doc, err := NewDocument(ContentTypeHTML, html)
	if err != nil {
		return err
	}
	pages[path] = doc
	return nil
}
