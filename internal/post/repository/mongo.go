package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/postboard/postboard/backend/go-services/internal/database"
	"github.com/postboard/postboard/backend/go-services/internal/post"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores posts and tags in two collections with string hex ids.
// Tag membership is kept on both sides (posts.tag_ids, tags.post_ids).
type MongoRepo struct {
	client       *mongo.Client
	posts        *mongo.Collection
	tags         *mongo.Collection
	transactions bool
}

// NewMongoRepo builds a repo on db. With transactions set, SyncTags runs in a
// multi-document transaction, which requires a replica set.
func NewMongoRepo(db *mongo.Database, transactions bool) *MongoRepo {
	return &MongoRepo{
		client:       db.Client(),
		posts:        db.Collection(database.PostsCollection),
		tags:         db.Collection(database.TagsCollection),
		transactions: transactions,
	}
}

func mapNoDocs(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (m *MongoRepo) CreatePost(ctx context.Context, p *post.Post) error {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	if p.TagIDs == nil {
		p.TagIDs = []string{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := m.posts.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (m *MongoRepo) GetPost(ctx context.Context, id string) (*post.Post, error) {
	var p post.Post
	if err := m.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapNoDocs(err)
	}
	return &p, nil
}

func (m *MongoRepo) ListPosts(ctx context.Context) ([]*post.Post, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoRepo) SearchPosts(ctx context.Context, title string) ([]*post.Post, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(title), Options: "i"}}
	return m.find(ctx, filter)
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*post.Post, error) {
	cur, err := m.posts.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*post.Post{}
	for cur.Next(ctx) {
		var p post.Post
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdatePost(ctx context.Context, p *post.Post) error {
	p.UpdatedAt = time.Now().UTC()
	set := bson.M{"title": p.Title, "content": p.Content, "image": p.Image, "updatedAt": p.UpdatedAt}
	res, err := m.posts.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeletePost(ctx context.Context, id string) error {
	res, err := m.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) FirstOrCreateTag(ctx context.Context, name string) (*post.Tag, error) {
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"_id":       primitive.NewObjectID().Hex(),
		"post_ids":  bson.A{},
		"createdAt": now,
		"updatedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var t post.Tag
	err := m.tags.FindOneAndUpdate(ctx, bson.M{"name": name}, update, opts).Decode(&t)
	if mongo.IsDuplicateKeyError(err) {
		// lost the upsert race against another writer; the tag exists now
		err = m.tags.FindOne(ctx, bson.M{"name": name}).Decode(&t)
	}
	if err != nil {
		return nil, fmt.Errorf("first or create tag %q: %w", name, err)
	}
	return &t, nil
}

func (m *MongoRepo) GetTags(ctx context.Context, ids []string) ([]*post.Tag, error) {
	out := []*post.Tag{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := m.tags.Find(ctx, bson.M{"_id": bson.M{"$in": lo.Uniq(ids)}})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) SyncTags(ctx context.Context, postID string, tagIDs []string) error {
	want := lo.Uniq(tagIDs)
	if want == nil {
		want = []string{}
	}
	return m.withTransaction(ctx, func(ctx context.Context) error {
		var cur struct {
			TagIDs []string `bson:"tag_ids"`
		}
		proj := options.FindOne().SetProjection(bson.M{"tag_ids": 1})
		if err := m.posts.FindOne(ctx, bson.M{"_id": postID}, proj).Decode(&cur); err != nil {
			return mapNoDocs(err)
		}

		added, removed := lo.Difference(want, cur.TagIDs)
		now := time.Now().UTC()
		if len(added) > 0 {
			_, err := m.tags.UpdateMany(ctx,
				bson.M{"_id": bson.M{"$in": added}},
				bson.M{"$addToSet": bson.M{"post_ids": postID}, "$set": bson.M{"updatedAt": now}})
			if err != nil {
				return fmt.Errorf("attach tags: %w", err)
			}
		}
		if len(removed) > 0 {
			_, err := m.tags.UpdateMany(ctx,
				bson.M{"_id": bson.M{"$in": removed}},
				bson.M{"$pull": bson.M{"post_ids": postID}, "$set": bson.M{"updatedAt": now}})
			if err != nil {
				return fmt.Errorf("detach tags: %w", err)
			}
		}
		_, err := m.posts.UpdateOne(ctx, bson.M{"_id": postID},
			bson.M{"$set": bson.M{"tag_ids": want, "updatedAt": now}})
		return err
	})
}

func (m *MongoRepo) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	if !m.transactions || m.client == nil {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
