package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbook/pkg/clock"
	"classbook/pkg/config"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LockCollectionName = "Class_locks"

// MongoLockStore keeps schedule leases in a collection keyed by lease key.
// Acquire is a single upsert that only matches an expired document, so a live
// holder turns the upsert into a duplicate-key insert. A TTL index on
// expires_at garbage collects abandoned leases.
type MongoLockStore struct {
	collection *mongo.Collection
	clock      clock.Clock
	timeout    time.Duration
}

func NewMongoLockStore(cfg *config.Config, clk clock.Clock) *MongoLockStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &MongoLockStore{
		collection: db.Collection(LockCollectionName),
		clock:      clk,
		timeout:    cfg.WriteTimeout,
	}
}

func (s *MongoLockStore) SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.clock.Now().UTC().Truncate(time.Millisecond)
	filter := bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}
	update := bson.M{
		"$set": bson.M{
			"token":      token,
			"expires_at": now.Add(ttl),
			"created_at": now,
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set lease: %w", err)
	}
	return true, nil
}

func (s *MongoLockStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var lock model.ClassLock
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": s.clock.Now().UTC()}}
	err := s.collection.FindOne(ctx, filter).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read lease: %w", err)
	}
	return lock.Token, true, nil
}

func (s *MongoLockStore) CompareAndDelete(ctx context.Context, key, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
	if err != nil {
		return false, fmt.Errorf("failed to delete lease: %w", err)
	}
	return result.DeletedCount == 1, nil
}
