package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by UpdateFields when no document has the given id.
var ErrNotFound = errors.New("document not found")

// MongoStore maps collection paths onto MongoDB collections and uses change
// streams for live subscriptions. Change streams need a replica set.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// CollectionName converts a slash separated path into a MongoDB collection name.
func CollectionName(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", ".")
}

func (s *MongoStore) collection(path string) *mongo.Collection {
	return s.db.Collection(CollectionName(path))
}

func (s *MongoStore) FetchAll(ctx context.Context, path string) ([]Document, error) {
	cursor, err := s.collection(path).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", path, err)
	}
	defer cursor.Close(ctx)

	docs := make([]Document, 0)
	for cursor.Next(ctx) {
		doc, err := documentFromRaw(cursor.Current)
		if err != nil {
			log.Printf("Skipping document in %s: %v", path, err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return docs, nil
}

// Subscribe opens a change stream before the first read so no change between
// the initial snapshot and the stream is lost. Every change event triggers a
// full re-read of the collection.
func (s *MongoStore) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	stream, err := s.collection(path).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return NewSubscription(ctx, func(ctx context.Context, out chan<- Snapshot) {
		defer stream.Close(context.Background())

		if !s.push(ctx, path, out) {
			return
		}
		for stream.Next(ctx) {
			if !s.push(ctx, path, out) {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			Send(ctx, out, Snapshot{Err: fmt.Errorf("change stream %s: %w", path, err)})
		}
	}), nil
}

func (s *MongoStore) push(ctx context.Context, path string, out chan<- Snapshot) bool {
	docs, err := s.FetchAll(ctx, path)
	if err != nil && ctx.Err() != nil {
		return false
	}
	return Send(ctx, out, Snapshot{Docs: docs, Err: err})
}

func (s *MongoStore) UpdateFields(ctx context.Context, path, id string, fields bson.M) error {
	result, err := s.collection(path).UpdateOne(ctx, idFilter(id), bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", path, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("update %s/%s: %w", path, id, ErrNotFound)
	}
	return nil
}

// EnsureIndexes creates the indexes the dashboard's sorts and filters read through.
func (s *MongoStore) EnsureIndexes(ctx context.Context, paths Paths) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "reporterId", Value: 1}}, Options: options.Index().SetSparse(true)},
	}

	_, err := s.collection(paths.Issues).Indexes().CreateMany(ctx, indexModels)
	return err
}
