package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/postboard/postboard/backend/go-services/internal/post"
)

// field order used when a single message has to be picked
var formFields = []string{"title", "content", "image", "tags"}

var messages = map[string]string{
	"title.required":   "The title field is required.",
	"title.string":     "The title must be a string.",
	"title.max":        "The title may not be greater than 255 characters.",
	"content.required": "The content field is required.",
	"content.string":   "The content must be a string.",
	"image.image":      "The file must be an image.",
	"image.mimes":      "The image must be a file of type: jpg, png, jpeg, gif.",
	"tags.string":      "The tags must be a valid string.",
}

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

type postForm struct {
	Title   string `form:"title" validate:"required,max=255"`
	Content string `form:"content" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
	})
	return v
}

// request is a parsed create/update submission.
type request struct {
	input post.Input
	old   map[string]string
	file  multipart.File
}

// close releases the uploaded file, if any.
func (r *request) close() {
	if r.file != nil {
		r.file.Close()
	}
}

func imageMaxMessage(limit int64) string {
	if limit%(1<<20) == 0 {
		return fmt.Sprintf("The image may not be larger than %dMB.", limit>>20)
	}
	return fmt.Sprintf("The image may not be larger than %d kilobytes.", limit>>10)
}

// parsePostRequest reads and validates the post form. All rules are checked before
// returning; a non-nil *post.ValidationError carries one message per failing field.
func parsePostRequest(c *gin.Context, maxImageBytes int64) (*request, error) {
	req := &request{old: map[string]string{}}
	verr := &post.ValidationError{}

	single := func(field string) (string, bool) {
		vals, ok := c.GetPostFormArray(field)
		if !ok {
			return "", false
		}
		if len(vals) > 1 {
			verr.Add(field, messages[field+".string"])
			return "", true
		}
		v := strings.TrimSpace(vals[0])
		req.old[field] = v
		return v, true
	}

	form := postForm{}
	form.Title, _ = single("title")
	form.Content, _ = single("content")
	if tags, ok := single("tags"); ok {
		req.input.Tags = &tags
	}

	if err := validate.Struct(form); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			return nil, err
		}
		for _, fe := range fes {
			verr.Add(fe.Field(), messages[fe.Field()+"."+fe.Tag()])
		}
	}
	req.input.Title = form.Title
	req.input.Content = form.Content

	img, err := readImage(c, maxImageBytes, verr)
	if err != nil {
		return nil, err
	}
	if img != nil {
		req.input.Image = img
		req.file = img.Body.(multipart.File)
	}

	if !verr.Empty() {
		req.close()
		return req, verr
	}
	return req, nil
}

// readImage opens the optional "image" upload and checks image, mimes, max in that order.
func readImage(c *gin.Context, maxImageBytes int64, verr *post.ValidationError) (*post.Image, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sniff upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	switch {
	case !strings.HasPrefix(mt.String(), "image/"):
		verr.Add("image", messages["image.image"])
	case !mimetype.EqualsAny(mt.String(), allowedImageTypes...):
		verr.Add("image", messages["image.mimes"])
	case fh.Size > maxImageBytes:
		verr.Add("image", imageMaxMessage(maxImageBytes))
	}
	if _, bad := verr.Fields["image"]; bad {
		f.Close()
		return nil, nil
	}
	return &post.Image{
		Filename:    fh.Filename,
		ContentType: mt.String(),
		Extension:   mt.Extension(),
		Size:        fh.Size,
		Body:        f,
	}, nil
}

// errorBag renders a ValidationError as field -> [message], the shape AJAX clients expect.
func errorBag(verr *post.ValidationError) (string, map[string][]string) {
	bag := make(map[string][]string, len(verr.Fields))
	first := ""
	for _, field := range formFields {
		if msg, ok := verr.Fields[field]; ok {
			bag[field] = []string{msg}
			if first == "" {
				first = msg
			}
		}
	}
	return first, bag
}
