package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingsrepo "classbook/internal/bookings/repository"
	"classbook/internal/migrations/mongo/validators"
	packagesrepo "classbook/internal/packages/repository"
	schedulesrepo "classbook/internal/schedules/repository"
)

var (
	SchedulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "country", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "end_time", Value: 1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		// seat counts and FIFO waitlist reads
		{Keys: bson.D{
			{Key: "schedule_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "created_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "schedule_id", Value: 1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	PackagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "country", Value: 1}, {Key: "price", Value: 1}}},
	}

	UserPackagesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purchased_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiry_date", Value: 1}}},
	}

	// Mongo's TTL monitor only sweeps about once a minute, so the lease store
	// still checks expires_at itself. The index just keeps the collection small.
	ClassLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running classbook Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		schedulesrepo.CollectionName: {
			Indexes:   SchedulesIndexes,
			Validator: validators.ScheduleValidator,
		},
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		bookingsrepo.LockCollectionName: {
			Indexes:   ClassLocksIndexes,
			Validator: validators.ClassLockValidator,
		},
		packagesrepo.PackagesCollectionName: {
			Indexes:   PackagesIndexes,
			Validator: validators.PackageValidator,
		},
		packagesrepo.UserPackagesCollectionName: {
			Indexes:   UserPackagesIndexes,
			Validator: validators.UserPackageValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists, updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
