// Package web holds the embedded HTML pages.
package web

import (
	"embed"
	"html/template"
	"strings"

	"github.com/postboard/postboard/backend/go-services/internal/post"
)

//go:embed templates/*.html
var files embed.FS

// StoragePrefix is the URL path blobs are served under.
const StoragePrefix = "/storage/"

// ImageURL turns a blob key into its public URL.
func ImageURL(key string) string {
	return StoragePrefix + strings.TrimPrefix(key, "/")
}

var funcs = template.FuncMap{
	"imageURL": ImageURL,
	"tagList":  func(p *post.Post) string { return strings.Join(p.TagNames(), ", ") },
	"deref":    deref,
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Templates parses every page. Each page is addressed by its file name, e.g. "index.html".
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}

// MustTemplates is Templates that panics on a parse error.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
