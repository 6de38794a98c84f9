package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/postboard/postboard/backend/go-services/internal/database"
	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Runs against a real server only when MONGODB_TEST_URI is set.
func newTestMongoRepo(t *testing.T) *MongoRepo {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, uri, 5*time.Second)
	require.NoError(t, err)
	db := client.Database("postboard_test_" + primitive.NewObjectID().Hex())
	require.NoError(t, database.EnsureIndexes(ctx, db))
	t.Cleanup(func() {
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return NewMongoRepo(db, false)
}

func TestMongoRepo_PostLifecycle(t *testing.T) {
	r := newTestMongoRepo(t)
	ctx := context.Background()

	p := &post.Post{Title: "Hello Mongo", Content: "body"}
	require.NoError(t, r.CreatePost(ctx, p))

	got, err := r.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Nil(t, got.Image)
	require.Empty(t, got.TagIDs)

	hits, err := r.SearchPosts(ctx, "mongo")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	img := "posts/x.png"
	got.Image = &img
	require.NoError(t, r.UpdatePost(ctx, got))
	got, err = r.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, img, *got.Image)

	require.NoError(t, r.DeletePost(ctx, p.ID))
	_, err = r.GetPost(ctx, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMongoRepo_TagsAndSync(t *testing.T) {
	r := newTestMongoRepo(t)
	ctx := context.Background()

	p := &post.Post{Title: "tagged", Content: "c"}
	require.NoError(t, r.CreatePost(ctx, p))
	a, err := r.FirstOrCreateTag(ctx, "go")
	require.NoError(t, err)
	again, err := r.FirstOrCreateTag(ctx, "go")
	require.NoError(t, err)
	require.Equal(t, a.ID, again.ID)
	b, err := r.FirstOrCreateTag(ctx, "web")
	require.NoError(t, err)

	require.NoError(t, r.SyncTags(ctx, p.ID, []string{a.ID, b.ID}))
	require.NoError(t, r.SyncTags(ctx, p.ID, []string{b.ID}))

	tags, err := r.GetTags(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	for _, tg := range tags {
		if tg.ID == a.ID {
			require.Empty(t, tg.PostIDs)
		} else {
			require.Equal(t, []string{p.ID}, tg.PostIDs)
		}
	}
	require.ErrorIs(t, r.SyncTags(ctx, "missing", nil), ErrNotFound)
}
