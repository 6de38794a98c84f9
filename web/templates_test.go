package web

import (
	"bytes"
	"testing"

	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/stretchr/testify/require"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	for _, name := range []string{"index.html", "create.html", "edit.html", "show.html", "error.html"} {
		require.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestShowRendersImageAndTags(t *testing.T) {
	tmpl := MustTemplates()
	img := "posts/abc.png"
	p := &post.Post{ID: "1", Title: "<b>Hi</b>", Content: "body", Image: &img, Tags: []*post.Tag{{Name: "go"}, {Name: "web"}}}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "show.html", map[string]any{"Title": p.Title, "Post": p}))
	out := buf.String()
	require.Contains(t, out, `src="/storage/posts/abc.png"`)
	require.Contains(t, out, "go, web")
	require.Contains(t, out, "&lt;b&gt;Hi&lt;/b&gt;")
}

func TestImageURL(t *testing.T) {
	require.Equal(t, "/storage/posts/a.png", ImageURL("posts/a.png"))
	require.Equal(t, "/storage/posts/a.png", ImageURL("/posts/a.png"))
}
