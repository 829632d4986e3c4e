package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/pkg/client"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	"classbook/pkg/logger"
	"classbook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// newMongoConfig connects to MONGO_URI and hands out a throwaway database.
// Tests skip when no server is configured.
func newMongoConfig(t *testing.T) *config.Config {
	t.Helper()
	uri := os.Getenv(config.EnvMongoURI)
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping Mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := "classbook_it_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mc.Database(dbName).Drop(ctx); err != nil {
			t.Logf("warning: failed to drop %s: %v", dbName, err)
		}
		if err := mc.Disconnect(ctx); err != nil {
			t.Logf("warning: failed to disconnect from MongoDB: %v", err)
		}
	})

	return &config.Config{
		MongoDatabaseName: dbName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		Log:               logger.Discard(),
		Client:            &client.Client{Mongo: mc},
	}
}

func TestMongoLockStore_Integration(t *testing.T) {
	cfg := newMongoConfig(t)
	clk := clock.NewFake(time.Now().UTC())
	store := NewMongoLockStore(cfg, clk)
	ctx := context.Background()
	key := "class_lock:it"

	ok, err := store.SetIfAbsent(ctx, key, "a", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}

	ok, err = store.SetIfAbsent(ctx, key, "b", 5*time.Second)
	if err != nil || ok {
		t.Fatalf("second acquire while held = %v, %v; want false, nil", ok, err)
	}

	deleted, err := store.CompareAndDelete(ctx, key, "b")
	if err != nil || deleted {
		t.Fatalf("release with foreign token = %v, %v; want false, nil", deleted, err)
	}

	clk.Advance(6 * time.Second)
	ok, err = store.SetIfAbsent(ctx, key, "b", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire after expiry = %v, %v", ok, err)
	}

	token, held, err := store.Get(ctx, key)
	if err != nil || !held || token != "b" {
		t.Fatalf("Get = %q, %v, %v; want b, true, nil", token, held, err)
	}

	deleted, err = store.CompareAndDelete(ctx, key, "a")
	if err != nil || deleted {
		t.Fatalf("stale holder release = %v, %v; want false, nil", deleted, err)
	}
}

func TestMongoBookingRepository_Integration(t *testing.T) {
	cfg := newMongoConfig(t)
	repo := NewMongoBookingRepository(cfg)
	ctx := context.Background()
	scheduleID := "64b7f0c2a1b2c3d4e5f60718"
	base := time.Now().UTC().Truncate(time.Millisecond)

	var created []*model.Booking
	for i, status := range []model.BookingStatus{model.StatusBooked, model.StatusWaitlist, model.StatusWaitlist} {
		b := &model.Booking{
			UserID:        fmt.Sprintf("u%d", i+1),
			ScheduleID:    scheduleID,
			UserPackageID: "64b7f0c2a1b2c3d4e5f60719",
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
			UpdatedAt:     base,
		}
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create: %v", err)
		}
		created = append(created, b)
	}

	waitlist, err := repo.FindBySchedule(ctx, scheduleID, model.StatusWaitlist)
	if err != nil {
		t.Fatalf("FindBySchedule: %v", err)
	}
	if len(waitlist) != 2 || waitlist[0].ID != created[1].ID {
		t.Fatalf("waitlist not in creation order: %+v", waitlist)
	}

	if err := repo.UpdateStatus(ctx, created[1].ID, model.StatusWaitlist, model.StatusBooked, base); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	err = repo.UpdateStatus(ctx, created[1].ID, model.StatusWaitlist, model.StatusCanceled, base)
	if !errors.Is(err, bookingserrors.ErrStatusChanged) {
		t.Fatalf("second compare-and-set = %v, want ErrStatusChanged", err)
	}

	counts, err := repo.CountBySchedules(ctx, []string{scheduleID}, model.StatusBooked)
	if err != nil {
		t.Fatalf("CountBySchedules: %v", err)
	}
	if counts[scheduleID] != 2 {
		t.Fatalf("booked count = %d, want 2", counts[scheduleID])
	}
}
