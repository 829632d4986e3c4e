package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "classbook/internal/bookings/repository"
	"classbook/pkg/config"
)

func TestRunMigration_Integration(t *testing.T) {
	uri := os.Getenv(config.EnvMongoURI)
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping Mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	dbName := "classbook_it_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	require.NoError(t, RunMigration(ctx, client, dbName))
	// second run updates validators in place
	require.NoError(t, RunMigration(ctx, client, dbName))

	db := client.Database(dbName)

	t.Run("class lock ttl index", func(t *testing.T) {
		cur, err := db.Collection(bookingsrepo.LockCollectionName).Indexes().List(ctx)
		require.NoError(t, err)
		var specs []bson.M
		require.NoError(t, cur.All(ctx, &specs))

		found := false
		for _, s := range specs {
			if _, ok := s["expireAfterSeconds"]; ok {
				found = true
			}
		}
		assert.True(t, found, "expected a TTL index on %s", bookingsrepo.LockCollectionName)
	})

	t.Run("booking status enum enforced", func(t *testing.T) {
		now := time.Now().UTC()
		_, err := db.Collection(bookingsrepo.CollectionName).InsertOne(ctx, bson.M{
			"user_id":         "u1",
			"schedule_id":     "aaaaaaaaaaaaaaaaaaaaaaaa",
			"user_package_id": "bbbbbbbbbbbbbbbbbbbbbbbb",
			"status":          "PENDING",
			"created_at":      now,
			"updated_at":      now,
		})
		assert.Error(t, err)
	})
}
