package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	packageserrors "classbook/internal/packages/errors"
	"classbook/pkg/config"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UserPackagesCollectionName = "User_packages"
)

type UserPackageRepository interface {
	Create(ctx context.Context, up *model.UserPackage) error
	FindByID(ctx context.Context, id string) (*model.UserPackage, error)
	FindByUser(ctx context.Context, userID string) ([]*model.UserPackage, error)
	// AdjustCredits adds delta to the balance and returns the stored balance.
	// A negative delta only applies when the balance covers it; otherwise
	// ErrBalanceGuard is returned and nothing changes.
	AdjustCredits(ctx context.Context, id string, delta int) (int, error)
	// ExpireBefore marks ACTIVE entries whose expiry date is before cutoff as
	// EXPIRED and returns how many changed.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type mongoUserPackageRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserPackageRepository(cfg *config.Config) UserPackageRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserPackageRepository{
		cfg:        cfg,
		collection: db.Collection(UserPackagesCollectionName),
	}
}

func (r *mongoUserPackageRepository) Create(ctx context.Context, up *model.UserPackage) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, up)
	if err != nil {
		return fmt.Errorf("failed to create user package: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		up.ID = oid.Hex()
	}
	return nil
}

func (r *mongoUserPackageRepository) FindByID(ctx context.Context, id string) (*model.UserPackage, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", packageserrors.ErrInvalidID, id)
	}

	var up model.UserPackage
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&up)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, packageserrors.ErrUserPackageNotFound
		}
		return nil, fmt.Errorf("failed to find user package: %w", err)
	}
	return &up, nil
}

func (r *mongoUserPackageRepository) FindByUser(ctx context.Context, userID string) ([]*model.UserPackage, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "purchased_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find user packages: %w", err)
	}
	defer cursor.Close(ctx)

	var ups []*model.UserPackage
	if err = cursor.All(ctx, &ups); err != nil {
		return nil, fmt.Errorf("failed to decode user packages: %w", err)
	}
	return ups, nil
}

func (r *mongoUserPackageRepository) AdjustCredits(ctx context.Context, id string, delta int) (int, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", packageserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	if delta < 0 {
		filter["remaining_credits"] = bson.M{"$gte": -delta}
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"remaining_credits": 1})

	var updated struct {
		RemainingCredits int `bson:"remaining_credits"`
	}
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"remaining_credits": delta}}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if delta < 0 {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return 0, findErr
			}
			return 0, packageserrors.ErrBalanceGuard
		}
		return 0, packageserrors.ErrUserPackageNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust credits: %w", err)
	}
	return updated.RemainingCredits, nil
}

func (r *mongoUserPackageRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":      model.PackageActive,
		"expiry_date": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{"status": model.PackageExpired}}

	result, err := r.collection.UpdateMany(ctx, filter, update, options.Update())
	if err != nil {
		return 0, fmt.Errorf("failed to expire user packages: %w", err)
	}
	return result.ModifiedCount, nil
}
