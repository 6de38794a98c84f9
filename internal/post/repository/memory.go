package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepo is an in-memory Store used by unit tests and as the fallback when no
// MongoDB is configured. Every method runs under one lock, so SyncTags is atomic.
type MemoryRepo struct {
	mu     sync.RWMutex
	posts  map[string]*post.Post
	order  []string
	tags   map[string]*post.Tag
	byName map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		posts:  make(map[string]*post.Post),
		tags:   make(map[string]*post.Tag),
		byName: make(map[string]string),
	}
}

func clonePost(p *post.Post) *post.Post {
	c := *p
	if p.Image != nil {
		img := *p.Image
		c.Image = &img
	}
	c.TagIDs = append([]string{}, p.TagIDs...)
	c.Tags = nil
	return &c
}

func cloneTag(t *post.Tag) *post.Tag {
	c := *t
	c.PostIDs = append([]string{}, t.PostIDs...)
	return &c
}

func (m *MemoryRepo) CreatePost(ctx context.Context, p *post.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	if _, ok := m.posts[p.ID]; ok {
		return fmt.Errorf("post %s already exists", p.ID)
	}
	if p.TagIDs == nil {
		p.TagIDs = []string{}
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID] = clonePost(p)
	m.order = append(m.order, p.ID)
	return nil
}

func (m *MemoryRepo) GetPost(ctx context.Context, id string) (*post.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.posts[id]; ok {
		return clonePost(p), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListPosts(ctx context.Context) ([]*post.Post, error) {
	return m.filter(func(*post.Post) bool { return true }), nil
}

func (m *MemoryRepo) SearchPosts(ctx context.Context, title string) ([]*post.Post, error) {
	needle := strings.ToLower(title)
	return m.filter(func(p *post.Post) bool {
		return strings.Contains(strings.ToLower(p.Title), needle)
	}), nil
}

func (m *MemoryRepo) filter(keep func(*post.Post) bool) []*post.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*post.Post, 0, len(m.order))
	for _, id := range m.order {
		if p := m.posts[id]; keep(p) {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func (m *MemoryRepo) UpdatePost(ctx context.Context, p *post.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Title = p.Title
	cur.Content = p.Content
	cur.Image = nil
	if p.Image != nil {
		img := *p.Image
		cur.Image = &img
	}
	cur.UpdatedAt = time.Now().UTC()
	p.UpdatedAt = cur.UpdatedAt
	return nil
}

func (m *MemoryRepo) DeletePost(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	m.order = lo.Without(m.order, id)
	return nil
}

func (m *MemoryRepo) FirstOrCreateTag(ctx context.Context, name string) (*post.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byName[name]; ok {
		return cloneTag(m.tags[id]), nil
	}
	now := time.Now().UTC()
	t := &post.Tag{ID: primitive.NewObjectID().Hex(), Name: name, PostIDs: []string{}, CreatedAt: now, UpdatedAt: now}
	m.tags[t.ID] = t
	m.byName[name] = t.ID
	return cloneTag(t), nil
}

func (m *MemoryRepo) GetTags(ctx context.Context, ids []string) ([]*post.Tag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*post.Tag, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if t, ok := m.tags[id]; ok {
			out = append(out, cloneTag(t))
		}
	}
	return out, nil
}

func (m *MemoryRepo) SyncTags(ctx context.Context, postID string, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	want := lo.Uniq(tagIDs)
	for _, id := range want {
		if _, ok := m.tags[id]; !ok {
			return fmt.Errorf("sync tags: unknown tag %s", id)
		}
	}
	added, removed := lo.Difference(want, p.TagIDs)
	now := time.Now().UTC()
	for _, id := range added {
		t := m.tags[id]
		if !lo.Contains(t.PostIDs, postID) {
			t.PostIDs = append(t.PostIDs, postID)
		}
		t.UpdatedAt = now
	}
	for _, id := range removed {
		if t, ok := m.tags[id]; ok {
			t.PostIDs = lo.Without(t.PostIDs, postID)
			t.UpdatedAt = now
		}
	}
	p.TagIDs = append([]string{}, want...)
	p.UpdatedAt = now
	return nil
}
