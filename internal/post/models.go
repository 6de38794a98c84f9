package post

import (
	"io"
	"time"
)

// Post is the persisted post document. Image holds a blob key relative to the
// blob store root and is stored as an explicit null when the post has no image.
type Post struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	Image     *string   `json:"image" bson:"image"`
	TagIDs    []string  `json:"tagIds" bson:"tag_ids"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`

	// Tags is resolved from TagIDs on read and never persisted.
	Tags []*Tag `json:"tags,omitempty" bson:"-"`
}

// HasImage reports whether the post references a stored image.
func (p *Post) HasImage() bool {
	return p.Image != nil && *p.Image != ""
}

// TagNames returns the resolved tag names in TagIDs order.
func (p *Post) TagNames() []string {
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		out = append(out, t.Name)
	}
	return out
}

// Tag is deduplicated by Name. PostIDs is relation bookkeeping only.
type Tag struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	PostIDs   []string  `json:"postIds" bson:"post_ids"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Image is an uploaded file that has passed validation.
type Image struct {
	Filename    string
	ContentType string
	Extension   string
	Size        int64
	Body        io.Reader
}

// Input carries validated create/update fields. A nil Tags means the tags key was
// absent from the request; a non-nil pointer to "" clears the post's tags.
type Input struct {
	Title   string
	Content string
	Image   *Image
	Tags    *string
}
