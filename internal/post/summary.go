package post

import (
	"strings"
	"unicode"
)

const (
	SummaryLimit  = 250
	SummarySuffix = "..."
)

// Excerpt shortens s to at most limit runes, trimming trailing whitespace of the cut
// and appending SummarySuffix. Strings within the limit are returned unchanged.
func Excerpt(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimRightFunc(string(r[:limit]), unicode.IsSpace) + SummarySuffix
}

// Routes are the per-post action URLs rendered next to every list row.
type Routes struct {
	Show    string `json:"show"`
	Edit    string `json:"edit"`
	Destroy string `json:"destroy"`
}

// Summary is the list-item shape served to the AJAX search box.
type Summary struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Image   *string `json:"image"`
	Content string  `json:"content"`
	Tags    string  `json:"tags"`
	Routes  Routes  `json:"routes"`
}

// Summarize builds the list item for p. imageURL turns a blob key into a public URL;
// routePrefix is the collection path, e.g. "/posts".
func Summarize(p *Post, imageURL func(key string) string, routePrefix string) Summary {
	var img *string
	if p.HasImage() {
		u := imageURL(*p.Image)
		img = &u
	}
	self := routePrefix + "/" + p.ID
	return Summary{
		ID:      p.ID,
		Title:   p.Title,
		Image:   img,
		Content: Excerpt(p.Content, SummaryLimit),
		Tags:    strings.Join(p.TagNames(), ", "),
		Routes:  Routes{Show: self, Edit: self + "/edit", Destroy: self},
	}
}
