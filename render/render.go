// Package render turns posts into HTML pages
package render

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/samber/lo"

	"feedboard/models"
)

//go:embed templates/*.html
var templates embed.FS

// InvalidDate is shown for posts whose upstream date could not be parsed
const InvalidDate = "Invalid Date"

// Post fields arrive escaped and are written as is
var pageTemplate = template.Must(
	template.New("page.html").
		Funcs(template.FuncMap{"date": formatDate}).
		ParseFS(templates, "templates/page.html"),
)

type Renderer struct {
	title       string
	description string
}

func New(title, description string) *Renderer {
	return &Renderer{
		title:       title,
		description: description,
	}
}

type page struct {
	Title       string
	Description string
	Posts       []models.Post
	Index       int
	Total       int
	HasPrev     bool
	Prev        int
	HasNext     bool
	Next        int
}

// Render produces the page at index. A previous link is shown when index > 0
// and a next link when index < total.
func (r *Renderer) Render(posts []models.Post, index, total int) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, page{
		Title:       r.title,
		Description: r.description,
		Posts:       posts,
		Index:       index,
		Total:       total,
		HasPrev:     index > 0,
		Prev:        index - 1,
		HasNext:     index < total,
		Next:        index + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index, err)
	}
	return buf.Bytes(), nil
}

// Paginate returns the number of pages needed for total posts and the
// boundary passed to Render as its total. The boundary is floor(total/perPage)
// while the page count is ceil(total/perPage), so when total is an exact
// multiple of perPage the last page links to a page that does not exist.
func Paginate(total, perPage int) (pages, boundary int) {
	pages = (total + perPage - 1) / perPage
	boundary = total / perPage
	return pages, boundary
}

// Pages splits posts into chunks of perPage
func Pages(posts []models.Post, perPage int) [][]models.Post {
	if len(posts) == 0 {
		return nil
	}
	return lo.Chunk(posts, perPage)
}

func formatDate(p models.Post) string {
	if !p.HasDate() {
		return InvalidDate
	}
	return p.Date.Local().Format("1/2/2006")
}
