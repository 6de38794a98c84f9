// Command ensure-indexes creates the MongoDB indexes the posts service relies on
// and exits. It reads the same MONGODB_* settings as the server.
package main

import (
	"context"
	"time"

	"github.com/postboard/postboard/backend/go-services/internal/config"
	"github.com/postboard/postboard/backend/go-services/internal/database"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	if cfg.MongoDB.URI == "" {
		logger.Fatalf("MONGODB_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
		logger.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
	})
	if err != nil {
		logger.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := database.EnsureIndexes(ctx, client.Database(cfg.MongoDB.Database)); err != nil {
		logger.Fatalf("%v", err)
	}
	logger.Infof("indexes ensured on %q", cfg.MongoDB.Database)
}
