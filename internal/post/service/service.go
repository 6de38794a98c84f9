package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/postboard/postboard/backend/go-services/internal/post/repository"
	"github.com/postboard/postboard/backend/go-services/internal/storage"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
	"github.com/postboard/postboard/backend/go-services/pkg/metrics"
	"github.com/samber/lo"
)

// ErrNotFound is post.ErrNotFound; every operation on an unknown id matches it via errors.Is.
var ErrNotFound = post.ErrNotFound

// Service defines the post operations used by the handler layer. It owns the image
// lifecycle in the blob store and keeps tag membership consistent.
type Service interface {
	List(ctx context.Context) ([]*post.Post, error)
	Find(ctx context.Context, id string) (*post.Post, error)
	Search(ctx context.Context, title string) ([]*post.Post, error)
	Create(ctx context.Context, in post.Input) (*post.Post, error)
	Update(ctx context.Context, id string, in post.Input) (*post.Post, error)
	Delete(ctx context.Context, id string) error
	RemoveImage(ctx context.Context, id string) error
}

// New returns a Service over the given document and blob stores. Images are stored
// under prefix (e.g. "posts").
func New(store repository.Store, blobs storage.Store, prefix string) Service {
	return &postService{store: store, blobs: blobs, prefix: prefix}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(blobs storage.Store) Service {
	return New(repository.NewMemoryRepo(), blobs, "posts")
}

type postService struct {
	store  repository.Store
	blobs  storage.Store
	prefix string
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	metrics.PostOperations.WithLabelValues(op, result).Inc()
}

func (s *postService) List(ctx context.Context) ([]*post.Post, error) {
	list, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return list, s.attachTags(ctx, list...)
}

func (s *postService) Find(ctx context.Context, id string) (*post.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, s.attachTags(ctx, p)
}

func (s *postService) Search(ctx context.Context, title string) ([]*post.Post, error) {
	if title == "" {
		return s.List(ctx)
	}
	list, err := s.store.SearchPosts(ctx, title)
	if err != nil {
		return nil, err
	}
	return list, s.attachTags(ctx, list...)
}

// attachTags resolves Tags for every post with a single GetTags call, keeping each
// post's TagIDs order.
func (s *postService) attachTags(ctx context.Context, posts ...*post.Post) error {
	ids := lo.Uniq(lo.FlatMap(posts, func(p *post.Post, _ int) []string { return p.TagIDs }))
	if len(ids) == 0 {
		return nil
	}
	tags, err := s.store.GetTags(ctx, ids)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	byID := lo.KeyBy(tags, func(t *post.Tag) string { return t.ID })
	for _, p := range posts {
		p.Tags = lo.FilterMap(p.TagIDs, func(id string, _ int) (*post.Tag, bool) {
			t, ok := byID[id]
			return t, ok
		})
	}
	return nil
}

func (s *postService) upload(ctx context.Context, img *post.Image) (string, error) {
	key := storage.NewKey(s.prefix, img.Extension)
	if err := s.blobs.Put(ctx, key, img.Body, img.Size, img.ContentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	metrics.BlobBytesUploaded.Add(float64(img.Size))
	return key, nil
}

// deleteBlob removes key and tolerates an already missing object.
func (s *postService) deleteBlob(ctx context.Context, key string) error {
	err := s.blobs.Delete(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		logger.Warnf("blob %s already gone", key)
		return nil
	}
	return err
}

// resolveTags parses raw and returns the tags in first-seen order, creating missing ones.
func (s *postService) resolveTags(ctx context.Context, raw string) ([]*post.Tag, error) {
	names := post.ParseTagNames(raw)
	tags := make([]*post.Tag, 0, len(names))
	for _, name := range names {
		t, err := s.store.FirstOrCreateTag(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func (s *postService) syncTags(ctx context.Context, p *post.Post, raw string) error {
	tags, err := s.resolveTags(ctx, raw)
	if err != nil {
		return &post.StorageError{Op: "sync tags", Err: err}
	}
	ids := lo.Map(tags, func(t *post.Tag, _ int) string { return t.ID })
	if err := s.store.SyncTags(ctx, p.ID, ids); err != nil {
		return &post.StorageError{Op: "sync tags", Err: err}
	}
	p.TagIDs = ids
	p.Tags = tags
	return nil
}

func (s *postService) Create(ctx context.Context, in post.Input) (p *post.Post, err error) {
	defer func() { observe("create", err) }()

	p = &post.Post{Title: in.Title, Content: in.Content, TagIDs: []string{}}
	if in.Image != nil {
		key, err := s.upload(ctx, in.Image)
		if err != nil {
			return nil, &post.StorageError{Op: "create post", Err: err}
		}
		p.Image = &key
	}

	inserted := false
	fail := func(cause error) (*post.Post, error) {
		cleanup := context.WithoutCancel(ctx)
		if inserted {
			if err := s.store.DeletePost(cleanup, p.ID); err != nil {
				logger.Errorf("create: rollback of post %s failed: %v", p.ID, err)
			}
		}
		if p.Image != nil {
			if err := s.deleteBlob(cleanup, *p.Image); err != nil {
				logger.Errorf("create: rollback of blob %s failed: %v", *p.Image, err)
			}
		}
		return nil, &post.StorageError{Op: "create post", Err: cause}
	}

	if err := s.store.CreatePost(ctx, p); err != nil {
		return fail(err)
	}
	inserted = true
	if in.Tags != nil {
		if err := s.syncTags(ctx, p, *in.Tags); err != nil {
			return fail(err)
		}
	}
	logger.Infof("post %s created", p.ID)
	return p, nil
}

func (s *postService) Update(ctx context.Context, id string, in post.Input) (p *post.Post, err error) {
	defer func() { observe("update", err) }()

	p, err = s.store.GetPost(ctx, id)
	if err != nil {
		return nil, &post.StorageError{Op: "update post", Err: err}
	}
	p.Title = in.Title
	p.Content = in.Content

	// store new, repoint, then delete old: the document never names a missing file
	var oldKey string
	if in.Image != nil {
		key, err := s.upload(ctx, in.Image)
		if err != nil {
			return nil, &post.StorageError{Op: "update post", Err: err}
		}
		if p.HasImage() {
			oldKey = *p.Image
		}
		p.Image = &key
	}

	if err := s.store.UpdatePost(ctx, p); err != nil {
		if in.Image != nil {
			if derr := s.deleteBlob(context.WithoutCancel(ctx), *p.Image); derr != nil {
				logger.Errorf("update: rollback of blob %s failed: %v", *p.Image, derr)
			}
		}
		return nil, &post.StorageError{Op: "update post", Err: err}
	}
	if oldKey != "" {
		if err := s.deleteBlob(ctx, oldKey); err != nil {
			logger.Warnf("update: old image %s not deleted: %v", oldKey, err)
		}
	}

	if in.Tags != nil {
		if err := s.syncTags(ctx, p, *in.Tags); err != nil {
			return nil, &post.StorageError{Op: "update post", Err: err}
		}
	} else if err := s.attachTags(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *postService) Delete(ctx context.Context, id string) (err error) {
	defer func() { observe("delete", err) }()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return &post.StorageError{Op: "delete post", Err: err}
	}
	if p.HasImage() {
		if err := s.deleteBlob(ctx, *p.Image); err != nil {
			return &post.StorageError{Op: "delete post", Err: err}
		}
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return &post.StorageError{Op: "delete post", Err: err}
	}
	logger.Infof("post %s deleted", id)
	return nil
}

func (s *postService) RemoveImage(ctx context.Context, id string) (err error) {
	defer func() { observe("remove_image", err) }()

	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return &post.StorageError{Op: "remove image", Err: err}
	}
	if !p.HasImage() {
		return nil
	}
	if err := s.deleteBlob(ctx, *p.Image); err != nil {
		return &post.StorageError{Op: "remove image", Err: err}
	}
	p.Image = nil
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return &post.StorageError{Op: "remove image", Err: err}
	}
	return nil
}
