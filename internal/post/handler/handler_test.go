package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/postboard/postboard/backend/go-services/internal/flash"
	"github.com/postboard/postboard/backend/go-services/internal/post/service"
	"github.com/postboard/postboard/backend/go-services/internal/storage"
	"github.com/postboard/postboard/backend/go-services/pkg/middleware"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

// WebP header: an image, but not an accepted type
var webpBytes = append([]byte("RIFF\x24\x00\x00\x00WEBPVP8 "), make([]byte, 40)...)

type app struct {
	t       *testing.T
	handler http.Handler
	svc     service.Service
}

func newApp(t *testing.T, maxImage int64) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	blobs, err := storage.NewFSStorage(afero.NewMemMapFs(), "public")
	require.NoError(t, err)
	svc := service.NewMemoryService(blobs)
	r := gin.New()
	New(svc, flash.NewService(flash.NewMemoryRepository(), 0), blobs, maxImage).Register(r)
	return &app{t: t, handler: middleware.MethodOverride(r), svc: svc}
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

type file struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, method, target string, fields url.Values, img *file) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if img != nil {
		fw, err := mw.CreateFormFile("image", img.name)
		require.NoError(t, err)
		_, err = fw.Write(img.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withCookies(req *http.Request, w *httptest.ResponseRecorder) *http.Request {
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func ajax(req *http.Request) *http.Request {
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

type listResponse struct {
	Posts []struct {
		ID      string  `json:"id"`
		Title   string  `json:"title"`
		Image   *string `json:"image"`
		Content string  `json:"content"`
		Tags    string  `json:"tags"`
		Routes  struct {
			Show    string `json:"show"`
			Edit    string `json:"edit"`
			Destroy string `json:"destroy"`
		} `json:"routes"`
	} `json:"posts"`
}

func (a *app) list(title string) listResponse {
	a.t.Helper()
	w := a.do(ajax(httptest.NewRequest(http.MethodGet, "/posts?title="+url.QueryEscape(title), nil)))
	require.Equal(a.t, http.StatusOK, w.Code)
	var out listResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateListAndServeImage(t *testing.T) {
	a := newApp(t, 2048*1024)

	long := strings.Repeat("x", 300)
	req := multipartRequest(t, http.MethodPost, "/posts", url.Values{
		"title": {"  Hello  "}, "content": {long}, "tags": {"a, b, a"},
	}, &file{name: "pic.gif", data: gifBytes})
	w := a.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/posts", w.Header().Get("Location"))

	page := a.do(withCookies(httptest.NewRequest(http.MethodGet, "/posts", nil), w))
	require.Equal(t, http.StatusOK, page.Code)
	require.Contains(t, page.Body.String(), "Post created successfully.")
	require.Contains(t, page.Body.String(), "Hello")

	out := a.list("")
	require.Len(t, out.Posts, 1)
	p := out.Posts[0]
	require.Equal(t, "Hello", p.Title)
	require.Equal(t, "a, b", p.Tags)
	require.Equal(t, strings.Repeat("x", 250)+"...", p.Content)
	require.Equal(t, "/posts/"+p.ID, p.Routes.Show)
	require.Equal(t, "/posts/"+p.ID+"/edit", p.Routes.Edit)
	require.NotNil(t, p.Image)
	require.True(t, strings.HasPrefix(*p.Image, "/storage/posts/"))

	img := a.do(httptest.NewRequest(http.MethodGet, *p.Image, nil))
	require.Equal(t, http.StatusOK, img.Code)
	require.Equal(t, "image/gif", img.Header().Get("Content-Type"))
	require.Equal(t, gifBytes, img.Body.Bytes())
}

func TestIndex_SearchFilters(t *testing.T) {
	a := newApp(t, 2048*1024)
	for _, title := range []string{"Alpha", "Beta"} {
		w := a.do(multipartRequest(t, http.MethodPost, "/posts", url.Values{"title": {title}, "content": {"c"}}, nil))
		require.Equal(t, http.StatusSeeOther, w.Code)
	}
	require.Len(t, a.list("").Posts, 2)
	out := a.list("alp")
	require.Len(t, out.Posts, 1)
	require.Equal(t, "Alpha", out.Posts[0].Title)
	require.Nil(t, out.Posts[0].Image)

	html := a.do(httptest.NewRequest(http.MethodGet, "/posts?title=Beta", nil))
	require.Equal(t, http.StatusOK, html.Code)
	require.Contains(t, html.Body.String(), "Beta")
	require.NotContains(t, html.Body.String(), "<td>Alpha</td>")
}

func TestStore_TitleTooLongRedirectsBackWithErrors(t *testing.T) {
	a := newApp(t, 2048*1024)

	req := multipartRequest(t, http.MethodPost, "/posts", url.Values{
		"title": {strings.Repeat("t", 256)}, "content": {"kept body"},
	}, nil)
	req.Header.Set("Referer", "http://example.com/posts/create")
	w := a.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/posts/create", w.Header().Get("Location"))
	require.Empty(t, a.list("").Posts)

	form := a.do(withCookies(httptest.NewRequest(http.MethodGet, "/posts/create", nil), w))
	require.Equal(t, http.StatusOK, form.Code)
	require.Contains(t, form.Body.String(), "The title may not be greater than 255 characters.")
	require.Contains(t, form.Body.String(), "kept body")
}

func TestStore_AjaxValidationReturns422(t *testing.T) {
	a := newApp(t, 2048*1024)

	req := ajax(multipartRequest(t, http.MethodPost, "/posts", url.Values{"title": {"   "}}, nil))
	w := a.do(req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "The title field is required.", body.Message)
	require.Equal(t, []string{"The title field is required."}, body.Errors["title"])
	require.Equal(t, []string{"The content field is required."}, body.Errors["content"])
}

func TestStore_ImageRules(t *testing.T) {
	cases := []struct {
		name    string
		max     int64
		data    []byte
		message string
	}{
		{"not an image", 2048 * 1024, []byte("just some text"), "The file must be an image."},
		{"wrong type", 2048 * 1024, webpBytes, "The image must be a file of type: jpg, png, jpeg, gif."},
		{"too large", 2 << 20, append(append([]byte{}, gifBytes...), make([]byte, 2<<20)...), "The image may not be larger than 2MB."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newApp(t, tc.max)
			req := ajax(multipartRequest(t, http.MethodPost, "/posts", url.Values{"title": {"t"}, "content": {"c"}}, &file{name: "f", data: tc.data}))
			w := a.do(req)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			require.Contains(t, w.Body.String(), tc.message)
			require.Empty(t, a.list("").Posts)
		})
	}
}

func TestStore_RepeatedFieldIsNotAString(t *testing.T) {
	a := newApp(t, 2048*1024)
	req := ajax(multipartRequest(t, http.MethodPost, "/posts", url.Values{"title": {"a", "b"}, "content": {"c"}, "tags": {"x", "y"}}, nil))
	w := a.do(req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "The title must be a string.")
	require.Contains(t, w.Body.String(), "The tags must be a valid string.")
}

func TestShowAndEdit_UnknownIDIs404(t *testing.T) {
	a := newApp(t, 2048*1024)
	for _, path := range []string{"/posts/nope", "/posts/nope/edit"} {
		w := a.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, w.Code, path)
		require.Contains(t, w.Body.String(), "Post not found.")
	}
}

func TestUpdateDeleteAndRemoveImageThroughMethodOverride(t *testing.T) {
	a := newApp(t, 2048*1024)
	w := a.do(multipartRequest(t, http.MethodPost, "/posts", url.Values{"title": {"Old"}, "content": {"c"}, "tags": {"go"}}, &file{name: "a.gif", data: gifBytes}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	id := a.list("").Posts[0].ID

	// update without a tags key keeps the tags
	w = a.do(multipartRequest(t, http.MethodPost, "/posts/"+id, url.Values{"_method": {"PUT"}, "title": {"New"}, "content": {"c2"}}, nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/posts", w.Header().Get("Location"))
	p := a.list("").Posts[0]
	require.Equal(t, "New", p.Title)
	require.Equal(t, "go", p.Tags)
	require.NotNil(t, p.Image)

	edit := a.do(httptest.NewRequest(http.MethodGet, "/posts/"+id+"/edit", nil))
	require.Equal(t, http.StatusOK, edit.Code)
	require.Contains(t, edit.Body.String(), "Remove Image")

	form := url.Values{"_method": {"DELETE"}}
	req := httptest.NewRequest(http.MethodPost, "/posts/"+id+"/image", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "/posts/"+id+"/edit")
	w = a.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/posts/"+id+"/edit", w.Header().Get("Location"))
	require.Nil(t, a.list("").Posts[0].Image)
	require.Equal(t, http.StatusNotFound, a.do(httptest.NewRequest(http.MethodGet, *p.Image, nil)).Code)

	req = httptest.NewRequest(http.MethodPost, "/posts/"+id, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = a.do(req)
	require.Equal(t, http.StatusSeeOther, w.Code)
	page := a.do(withCookies(httptest.NewRequest(http.MethodGet, "/posts", nil), w))
	require.Contains(t, page.Body.String(), "Post deleted successfully.")
	require.Equal(t, http.StatusNotFound, a.do(httptest.NewRequest(http.MethodGet, "/posts/"+id, nil)).Code)
}

func TestDestroy_UnknownIDFlashesError(t *testing.T) {
	a := newApp(t, 2048*1024)
	w := a.do(httptest.NewRequest(http.MethodDelete, "/posts/missing", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	page := a.do(withCookies(httptest.NewRequest(http.MethodGet, "/posts", nil), w))
	require.Contains(t, page.Body.String(), "Failed to delete post: post not found")
}

func TestBlob_RejectsTraversalAndMissing(t *testing.T) {
	a := newApp(t, 2048*1024)
	require.Equal(t, http.StatusNotFound, a.do(httptest.NewRequest(http.MethodGet, "/storage/posts/none.gif", nil)).Code)
	require.Equal(t, http.StatusNotFound, a.do(httptest.NewRequest(http.MethodGet, "/storage/..%2f..%2fetc/passwd", nil)).Code)
}

func TestRootRedirects(t *testing.T) {
	a := newApp(t, 2048*1024)
	w := a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/posts", w.Header().Get("Location"))
}
