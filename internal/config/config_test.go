package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "postboard_test")
	t.Setenv("MONGODB_TRANSACTIONS", "true")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	require.Equal(t, "postboard_test", cfg.MongoDB.Database)
	require.True(t, cfg.MongoDB.Transactions)
	require.Equal(t, "localhost:6380", cfg.RedisAddr())
	require.Equal(t, 2.5, cfg.RateLimit.RPS)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("UPLOAD_MAX_IMAGE_KB", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "", cfg.RedisAddr())
	require.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
	require.Equal(t, int64(2048*1024), cfg.Upload.MaxImageBytes)
	require.True(t, cfg.TagCache.Enabled)
}
