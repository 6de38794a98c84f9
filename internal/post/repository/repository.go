package repository

import (
	"context"

	"github.com/postboard/postboard/backend/go-services/internal/post"
)

// ErrNotFound is post.ErrNotFound, re-exported for store implementations.
var ErrNotFound = post.ErrNotFound

// Store is the document-store contract for posts and tags. Implementations do not
// touch the blob store.
type Store interface {
	// CreatePost assigns ID and timestamps and inserts p.
	CreatePost(ctx context.Context, p *post.Post) error
	GetPost(ctx context.Context, id string) (*post.Post, error)
	ListPosts(ctx context.Context) ([]*post.Post, error)
	// SearchPosts matches title as a case-insensitive literal substring.
	SearchPosts(ctx context.Context, title string) ([]*post.Post, error)
	// UpdatePost overwrites title, content and image of the stored post (last write wins).
	UpdatePost(ctx context.Context, p *post.Post) error
	DeletePost(ctx context.Context, id string) error

	// FirstOrCreateTag returns the tag called name, creating it when missing.
	FirstOrCreateTag(ctx context.Context, name string) (*post.Tag, error)
	GetTags(ctx context.Context, ids []string) ([]*post.Tag, error)
	// SyncTags makes tagIDs the post's tag set and reconciles the tags' post_ids
	// back-references on both sides.
	SyncTags(ctx context.Context, postID string, tagIDs []string) error
}
