package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postboard/postboard/backend/go-services/handlers"
	"github.com/postboard/postboard/backend/go-services/internal/config"
	"github.com/postboard/postboard/backend/go-services/internal/database"
	"github.com/postboard/postboard/backend/go-services/internal/flash"
	posthandler "github.com/postboard/postboard/backend/go-services/internal/post/handler"
	"github.com/postboard/postboard/backend/go-services/internal/post/repository"
	"github.com/postboard/postboard/backend/go-services/internal/post/service"
	"github.com/postboard/postboard/backend/go-services/internal/post/tagcache"
	"github.com/postboard/postboard/backend/go-services/internal/storage"
	"github.com/postboard/postboard/backend/go-services/pkg/logger"
	"github.com/postboard/postboard/backend/go-services/pkg/metrics"
	"github.com/postboard/postboard/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	// initialize logging (LOG_LEVEL debug|info|warn|error|fatal, LOG_FORMAT json|console)
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	logger.Infof("config loaded: mongo=%v redis=%v env=%s", cfg.MongoDB.URI != "", cfg.RedisAddr() != "", cfg.Server.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxFormMemory
	r.Use(middleware.RequestLogger(), gin.Recovery())

	checks := map[string]handlers.ReadinessCheck{}

	// Redis backs flashes and, optionally, the rate limiter
	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v; using in-memory flashes", addr, err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.Infof("connected to Redis at %s", addr)
			defer rdb.Close()
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
		logger.Infof("rate limiter enabled: rps=%.2f burst=%d redis=%v", cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.UseRedis && rdb != nil)
	}

	// document store: MongoDB when configured and reachable, memory otherwise
	var store repository.Store
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			logger.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			logger.Warnf("could not connect to MongoDB: %v; using memory-backed store", err)
		} else {
			defer disconnect(client)
			db := client.Database(cfg.MongoDB.Database)
			if err := database.EnsureIndexes(ctx, db); err != nil {
				logger.Warnf("ensure indexes: %v", err)
			}
			store = repository.NewMongoRepo(db, cfg.MongoDB.Transactions)
			checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
			logger.Infof("using MongoDB database %q (transactions=%v)", cfg.MongoDB.Database, cfg.MongoDB.Transactions)
		}
	}
	if store == nil {
		store = repository.NewMemoryRepo()
	}

	if cfg.TagCache.Enabled {
		tc, err := tagcache.New(10_000, cfg.TagCache.TTL)
		if err != nil {
			logger.Warnf("tag cache disabled: %v", err)
		} else {
			defer tc.Close()
			store = tagcache.Wrap(store, tc)
		}
	}

	storageCfg := storage.LoadConfig()
	blobs, err := storage.New(storageCfg)
	if err != nil {
		logger.Fatalf("blob store (%s): %v", storageCfg.Driver, err)
	}
	logger.Infof("blob store: driver=%s prefix=%s", storageCfg.Driver, storageCfg.Prefix)

	var flashRepo flash.Repository = flash.NewMemoryRepository()
	if rdb != nil {
		flashRepo = flash.NewRedisRepository(rdb, "flash:")
	}

	svc := service.New(store, blobs, storageCfg.Prefix)
	posthandler.New(svc, flash.NewService(flashRepo, flash.DefaultTTL), blobs, cfg.Upload.MaxImageBytes).Register(r)

	handlers.RegisterHealth(r, checks)
	handlers.RegisterSwagger(r)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      middleware.MethodOverride(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting postboard on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}
