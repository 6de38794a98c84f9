package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/postboard/postboard/backend/go-services/internal/flash"
	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/postboard/postboard/backend/go-services/internal/post/service"
	"github.com/postboard/postboard/backend/go-services/internal/storage"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
	"github.com/postboard/postboard/backend/go-services/web"
)

const postsPath = "/posts"

// Handler serves the post pages, the AJAX list and stored images.
type Handler struct {
	svc           service.Service
	flash         *flash.Service
	blobs         storage.Store
	maxImageBytes int64
}

func New(svc service.Service, fl *flash.Service, blobs storage.Store, maxImageBytes int64) *Handler {
	return &Handler{svc: svc, flash: fl, blobs: blobs, maxImageBytes: maxImageBytes}
}

// Register installs the page templates and every post route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.SetHTMLTemplate(web.MustTemplates())

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, postsPath) })
	r.GET("/storage/*key", h.Blob)

	g := r.Group(postsPath)
	g.GET("", h.Index)
	g.GET("/create", h.Create)
	g.POST("", h.Store)
	g.GET("/:id", h.Show)
	g.GET("/:id/edit", h.Edit)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Destroy)
	g.DELETE("/:id/image", h.RemoveImage)
}

type formValues struct {
	Title   string
	Content string
	Tags    string
}

type listPage struct {
	Title  string
	Flash  *flash.Flash
	Search string
	Posts  []post.Summary
}

type formPage struct {
	Title string
	Flash *flash.Flash
	Form  formValues
	Post  *post.Post
}

type postPage struct {
	Title string
	Flash *flash.Flash
	Post  *post.Post
}

type errorPage struct {
	Title   string
	Status  int
	Message string
}

// wantsJSON matches the requests the search box sends.
func wantsJSON(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

func (h *Handler) fail(c *gin.Context, status int, msg string) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{"message": msg})
		return
	}
	c.HTML(status, "error.html", errorPage{Title: http.StatusText(status), Status: status, Message: msg})
}

// back redirects to the Referer path (same-site only), or fallback.
func back(c *gin.Context, fallback string) {
	target := fallback
	if ref := c.GetHeader("Referer"); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == c.Request.Host) && strings.HasPrefix(u.Path, "/") {
			target = u.RequestURI()
		}
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *Handler) Index(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	posts, err := h.svc.Search(c.Request.Context(), title)
	if err != nil {
		logger.Errorf("list posts: %v", err)
		h.fail(c, http.StatusInternalServerError, "Failed to load posts.")
		return
	}
	items := make([]post.Summary, 0, len(posts))
	for _, p := range posts {
		items = append(items, post.Summarize(p, web.ImageURL, postsPath))
	}
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"posts": items})
		return
	}
	c.HTML(http.StatusOK, "index.html", listPage{Title: "Posts", Flash: h.flash.Take(c), Search: title, Posts: items})
}

func (h *Handler) Create(c *gin.Context) {
	f := h.flash.Take(c)
	c.HTML(http.StatusOK, "create.html", formPage{
		Title: "Create Post",
		Flash: f,
		Form:  formValues{Title: f.OldValue("title"), Content: f.OldValue("content"), Tags: f.OldValue("tags")},
	})
}

func (h *Handler) Show(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, "show.html", postPage{Title: p.Title, Flash: h.flash.Take(c), Post: p})
}

func (h *Handler) Edit(c *gin.Context) {
	p, ok := h.find(c)
	if !ok {
		return
	}
	f := h.flash.Take(c)
	form := formValues{Title: p.Title, Content: p.Content, Tags: strings.Join(p.TagNames(), ", ")}
	if f.HasErrors() {
		form = formValues{Title: f.OldValue("title"), Content: f.OldValue("content"), Tags: f.OldValue("tags")}
	}
	c.HTML(http.StatusOK, "edit.html", formPage{Title: "Edit Post", Flash: f, Form: form, Post: p})
}

// find loads the :id post or writes the 404/500 response.
func (h *Handler) find(c *gin.Context) (*post.Post, bool) {
	p, err := h.svc.Find(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		h.fail(c, http.StatusNotFound, "Post not found.")
		return nil, false
	}
	if err != nil {
		logger.Errorf("find post %s: %v", c.Param("id"), err)
		h.fail(c, http.StatusInternalServerError, "Failed to load post.")
		return nil, false
	}
	return p, true
}

// invalid answers a failed validation: 422 JSON for AJAX, otherwise a redirect back
// carrying the errors and the old input.
func (h *Handler) invalid(c *gin.Context, verr *post.ValidationError, old map[string]string, fallback string) {
	if wantsJSON(c) {
		msg, bag := errorBag(verr)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg, "errors": bag})
		return
	}
	h.flash.Set(c, &flash.Flash{Errors: verr.Fields, Old: old})
	back(c, fallback)
}

func (h *Handler) Store(c *gin.Context) {
	h.save(c, "", postsPath+"/create")
}

func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	h.save(c, id, postsPath+"/"+id+"/edit")
}

// save runs create (id == "") or update.
func (h *Handler) save(c *gin.Context, id, fallback string) {
	req, err := parsePostRequest(c, h.maxImageBytes)
	var verr *post.ValidationError
	if errors.As(err, &verr) {
		h.invalid(c, verr, req.old, fallback)
		return
	}
	if err != nil {
		logger.Warnf("parse post form: %v", err)
		h.fail(c, http.StatusBadRequest, "Malformed form submission.")
		return
	}
	defer req.close()

	ctx := c.Request.Context()
	success := "Post created successfully."
	if id == "" {
		_, err = h.svc.Create(ctx, req.input)
	} else {
		success = "Post updated successfully."
		_, err = h.svc.Update(ctx, id, req.input)
	}
	if err != nil {
		logger.Errorf("save post %q: %v", id, err)
		h.flash.Set(c, &flash.Flash{Errors: map[string]string{"error": err.Error()}, Old: req.old})
		back(c, fallback)
		return
	}
	h.flash.Set(c, &flash.Flash{Success: success})
	c.Redirect(http.StatusSeeOther, postsPath)
}

func (h *Handler) Destroy(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		logger.Errorf("delete post %s: %v", c.Param("id"), err)
		h.flash.Set(c, &flash.Flash{Errors: map[string]string{"error": err.Error()}})
	} else {
		h.flash.Set(c, &flash.Flash{Success: "Post deleted successfully."})
	}
	c.Redirect(http.StatusSeeOther, postsPath)
}

func (h *Handler) RemoveImage(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.RemoveImage(c.Request.Context(), id); err != nil {
		logger.Errorf("remove image of %s: %v", id, err)
		h.flash.Set(c, &flash.Flash{Errors: map[string]string{"error": err.Error()}})
	} else {
		h.flash.Set(c, &flash.Flash{Success: "Image removed successfully."})
	}
	back(c, postsPath+"/"+id+"/edit")
}

// Blob streams a stored image.
func (h *Handler) Blob(c *gin.Context) {
	key, ok := storage.CleanKey(c.Param("key"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	obj, err := h.blobs.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Errorf("open blob %s: %v", key, err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer obj.Body.Close()
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj.Body, nil)
}
