package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PostsCollection = "posts"
	TagsCollection  = "tags"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff to tolerate startup races.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, onRetry func(attempt int, err error)) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

// EnsureIndexes creates the indexes the posts service relies on. Tag names are the
// dedup key, so the unique index is what makes FirstOrCreateTag safe under races.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	tagIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_tag_name")},
		{Keys: bson.D{{Key: "post_ids", Value: 1}}, Options: options.Index().SetName("idx_tag_post_ids")},
	}
	if _, err := db.Collection(TagsCollection).Indexes().CreateMany(ctx, tagIdx); err != nil {
		return fmt.Errorf("ensure tag indexes: %w", err)
	}
	postIdx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tag_ids", Value: 1}}, Options: options.Index().SetName("idx_post_tag_ids")},
		{Keys: bson.D{{Key: "title", Value: 1}}, Options: options.Index().SetName("idx_post_title")},
	}
	if _, err := db.Collection(PostsCollection).Indexes().CreateMany(ctx, postIdx); err != nil {
		return fmt.Errorf("ensure post indexes: %w", err)
	}
	return nil
}
