package flash

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_PutPull(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:flash:")

	ctx := context.Background()
	f := &Flash{
		Errors:    map[string]string{"title": "The title field is required."},
		Old:       map[string]string{"content": "body"},
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, repo.Put(ctx, "t1", f))
	require.True(t, m.Exists("test:flash:t1"))

	got, err := repo.Pull(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "The title field is required.", got.Error("title"))
	require.Equal(t, "body", got.OldValue("content"))

	// consumed on first read
	again, err := repo.Pull(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "")

	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, "t2", &Flash{Success: "Post created successfully.", ExpiresAt: time.Now().UTC().Add(2 * time.Second)}))
	m.FastForward(3 * time.Second)

	got, err := repo.Pull(ctx, "t2")
	require.NoError(t, err)
	require.Nil(t, got)
}
