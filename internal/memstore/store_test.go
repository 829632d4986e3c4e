package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	packageserrors "classbook/internal/packages/errors"
	"classbook/pkg/clock"
	"classbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func TestExecuteTransaction_RollsBackOnError(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	up := &model.UserPackage{UserID: "u1", RemainingCredits: 5, Status: model.PackageActive}
	require.NoError(t, s.UserPackages().Create(ctx, up))
	existing := &model.Booking{UserID: "u1", ScheduleID: "s1", Status: model.StatusWaitlist, CreatedAt: base}
	require.NoError(t, s.Bookings().Create(ctx, existing))

	boom := errors.New("boom")
	var created string
	err := s.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.UserPackages().AdjustCredits(ctx, up.ID, -2); err != nil {
			return err
		}
		b := &model.Booking{UserID: "u1", ScheduleID: "s2", Status: model.StatusBooked, CreatedAt: base}
		if err := s.Bookings().Create(ctx, b); err != nil {
			return err
		}
		created = b.ID
		if err := s.Bookings().UpdateStatus(ctx, existing.ID, model.StatusWaitlist, model.StatusBooked, base); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.UserPackages().FindByID(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.RemainingCredits)

	_, err = s.Bookings().FindByID(ctx, created)
	assert.ErrorIs(t, err, bookingserrors.ErrNotFound)

	b, err := s.Bookings().FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaitlist, b.Status)
}

func TestExecuteTransaction_RollbackKeepsConcurrentWrites(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	up := &model.UserPackage{UserID: "u1", RemainingCredits: 10, Status: model.PackageActive}
	require.NoError(t, s.UserPackages().Create(ctx, up))

	err := s.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		_, err := s.UserPackages().AdjustCredits(txCtx, up.ID, -3)
		require.NoError(t, err)
		// outside the transaction
		_, err = s.UserPackages().AdjustCredits(ctx, up.ID, -4)
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := s.UserPackages().FindByID(ctx, up.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.RemainingCredits)
}

func TestAdjustCredits_Guard(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	up := &model.UserPackage{UserID: "u1", RemainingCredits: 2}
	require.NoError(t, s.UserPackages().Create(ctx, up))

	_, err := s.UserPackages().AdjustCredits(ctx, up.ID, -3)
	assert.ErrorIs(t, err, packageserrors.ErrBalanceGuard)
	balance, err := s.UserPackages().AdjustCredits(ctx, up.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	balance, err = s.UserPackages().AdjustCredits(ctx, up.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, balance)

	got, _ := s.UserPackages().FindByID(ctx, up.ID)
	assert.Equal(t, 7, got.RemainingCredits)

	missing := "64b7f0c2a1b2c3d4e5f60718"
	_, err = s.UserPackages().AdjustCredits(ctx, missing, 1)
	assert.ErrorIs(t, err, packageserrors.ErrUserPackageNotFound)
	_, err = s.UserPackages().AdjustCredits(ctx, "nope", 1)
	assert.ErrorIs(t, err, packageserrors.ErrInvalidID)
}

func TestFindBySchedule_CreationOrder(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	later := &model.Booking{UserID: "late", ScheduleID: "s1", Status: model.StatusWaitlist, CreatedAt: base.Add(time.Minute)}
	first := &model.Booking{UserID: "first", ScheduleID: "s1", Status: model.StatusWaitlist, CreatedAt: base}
	second := &model.Booking{UserID: "second", ScheduleID: "s1", Status: model.StatusWaitlist, CreatedAt: base}
	for _, b := range []*model.Booking{later, first, second} {
		require.NoError(t, s.Bookings().Create(ctx, b))
	}

	got, err := s.Bookings().FindBySchedule(ctx, "s1", model.StatusWaitlist)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "late"}, []string{got[0].UserID, got[1].UserID, got[2].UserID})
}

func TestUpdateStatus_CompareAndSet(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	b := &model.Booking{UserID: "u1", ScheduleID: "s1", Status: model.StatusBooked, CreatedAt: base}
	require.NoError(t, s.Bookings().Create(ctx, b))

	require.NoError(t, s.Bookings().UpdateStatus(ctx, b.ID, model.StatusBooked, model.StatusCanceled, base))
	err := s.Bookings().UpdateStatus(ctx, b.ID, model.StatusBooked, model.StatusCanceled, base)
	assert.ErrorIs(t, err, bookingserrors.ErrStatusChanged)
}

func TestFailNext_IsSingleShot(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()
	boom := errors.New("down")

	s.FailNext("CountBySchedule", boom)
	_, err := s.Bookings().CountBySchedule(ctx, "s1", model.StatusBooked)
	assert.ErrorIs(t, err, boom)

	n, err := s.Bookings().CountBySchedule(ctx, "s1", model.StatusBooked)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpireBefore(t *testing.T) {
	s := New(clock.NewFake(base))
	ctx := context.Background()

	old := &model.UserPackage{UserID: "u1", Status: model.PackageActive, ExpiryDate: base.Add(-time.Hour), RemainingCredits: 3}
	fresh := &model.UserPackage{UserID: "u1", Status: model.PackageActive, ExpiryDate: base.Add(time.Hour)}
	require.NoError(t, s.UserPackages().Create(ctx, old))
	require.NoError(t, s.UserPackages().Create(ctx, fresh))

	n, err := s.UserPackages().ExpireBefore(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := s.UserPackages().FindByID(ctx, old.ID)
	assert.Equal(t, model.PackageExpired, got.Status)
	assert.Equal(t, 3, got.RemainingCredits)
}
