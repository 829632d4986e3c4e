package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	bookingsrepo "classbook/internal/bookings/repository"
	packageserrors "classbook/internal/packages/errors"
	packagesrepo "classbook/internal/packages/repository"
	scheduleserrors "classbook/internal/schedules/errors"
	schedulesrepo "classbook/internal/schedules/repository"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ schedulesrepo.ScheduleRepository   = (*ScheduleRepo)(nil)
	_ bookingsrepo.BookingRepository     = (*BookingRepo)(nil)
	_ packagesrepo.UserPackageRepository = (*UserPackageRepo)(nil)
	_ packagesrepo.PackageRepository     = (*PackageRepo)(nil)
)

func validID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

type ScheduleRepo struct {
	s *Store
}

func (r *ScheduleRepo) Create(ctx context.Context, sc *model.Schedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("CreateSchedule"); err != nil {
		return err
	}

	sc.ID = r.s.newID()
	sc.CreatedAt = r.s.clock.Now().UTC()
	stored := *sc
	r.s.schedules[sc.ID] = &stored
	id := sc.ID
	r.s.record(ctx, func() { delete(r.s.schedules, id) })
	return nil
}

func (r *ScheduleRepo) FindByID(_ context.Context, id string) (*model.Schedule, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", scheduleserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.schedules[id]
	if !ok {
		return nil, scheduleserrors.ErrNotFound
	}
	out := *sc
	return &out, nil
}

func (r *ScheduleRepo) FindAll(_ context.Context) ([]*model.Schedule, error) {
	return r.filter(func(*model.Schedule) bool { return true }), nil
}

func (r *ScheduleRepo) FindByCountry(_ context.Context, country string) ([]*model.Schedule, error) {
	return r.filter(func(sc *model.Schedule) bool { return sc.Country == country }), nil
}

func (r *ScheduleRepo) FindActive(_ context.Context, now time.Time) ([]*model.Schedule, error) {
	return r.filter(func(sc *model.Schedule) bool { return sc.EndTime.After(now) }), nil
}

func (r *ScheduleRepo) filter(keep func(*model.Schedule) bool) []*model.Schedule {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Schedule
	for _, sc := range r.s.schedules {
		if keep(sc) {
			c := *sc
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].StartTime.Equal(out[k].StartTime) {
			return out[i].StartTime.Before(out[k].StartTime)
		}
		return r.s.seq[out[i].ID] < r.s.seq[out[k].ID]
	})
	return out
}

type BookingRepo struct {
	s *Store
}

func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("CreateBooking"); err != nil {
		return err
	}

	b.ID = r.s.newID()
	stored := *b
	r.s.bookings[b.ID] = &stored
	id := b.ID
	r.s.record(ctx, func() { delete(r.s.bookings, id) })
	return nil
}

func (r *BookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("UpdateStatus"); err != nil {
		return err
	}

	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return bookingserrors.ErrStatusChanged
	}
	prevUpdated := b.UpdatedAt
	b.Status = to
	b.UpdatedAt = at.UTC()
	r.s.record(ctx, func() {
		if cur, ok := r.s.bookings[id]; ok && cur.Status == to {
			cur.Status = from
			cur.UpdatedAt = prevUpdated
		}
	})
	return nil
}

func (r *BookingRepo) FindByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool { return b.UserID == userID }), nil
}

func (r *BookingRepo) FindByUserAndSchedule(_ context.Context, userID, scheduleID string) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool {
		return b.UserID == userID && b.ScheduleID == scheduleID
	}), nil
}

func (r *BookingRepo) FindBySchedule(_ context.Context, scheduleID string, status model.BookingStatus) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool {
		return b.ScheduleID == scheduleID && b.Status == status
	}), nil
}

func (r *BookingRepo) FindByStatus(_ context.Context, status model.BookingStatus) ([]*model.Booking, error) {
	return r.filter(func(b *model.Booking) bool { return b.Status == status }), nil
}

func (r *BookingRepo) CountBySchedule(_ context.Context, scheduleID string, status model.BookingStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("CountBySchedule"); err != nil {
		return 0, err
	}

	var n int64
	for _, b := range r.s.bookings {
		if b.ScheduleID == scheduleID && b.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *BookingRepo) CountBySchedules(_ context.Context, scheduleIDs []string, status model.BookingStatus) (map[string]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	counts := make(map[string]int64, len(scheduleIDs))
	wanted := make(map[string]bool, len(scheduleIDs))
	for _, id := range scheduleIDs {
		wanted[id] = true
	}
	for _, b := range r.s.bookings {
		if wanted[b.ScheduleID] && b.Status == status {
			counts[b.ScheduleID]++
		}
	}
	return counts, nil
}

func (r *BookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.s.ExecuteTransaction(ctx, fn)
}

func (r *BookingRepo) filter(keep func(*model.Booking) bool) []*model.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Booking
	for _, b := range r.s.bookings {
		if keep(b) {
			c := *b
			out = append(out, &c)
		}
	}
	r.s.sortBookings(out)
	return out
}

type UserPackageRepo struct {
	s *Store
}

func (r *UserPackageRepo) Create(ctx context.Context, up *model.UserPackage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("CreateUserPackage"); err != nil {
		return err
	}

	up.ID = r.s.newID()
	stored := *up
	r.s.userPackages[up.ID] = &stored
	id := up.ID
	r.s.record(ctx, func() { delete(r.s.userPackages, id) })
	return nil
}

func (r *UserPackageRepo) FindByID(_ context.Context, id string) (*model.UserPackage, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", packageserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	up, ok := r.s.userPackages[id]
	if !ok {
		return nil, packageserrors.ErrUserPackageNotFound
	}
	out := *up
	return &out, nil
}

func (r *UserPackageRepo) FindByUser(_ context.Context, userID string) ([]*model.UserPackage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.UserPackage
	for _, up := range r.s.userPackages {
		if up.UserID == userID {
			c := *up
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].PurchasedAt.Equal(out[k].PurchasedAt) {
			return out[i].PurchasedAt.After(out[k].PurchasedAt)
		}
		return r.s.seq[out[i].ID] > r.s.seq[out[k].ID]
	})
	return out, nil
}

func (r *UserPackageRepo) AdjustCredits(ctx context.Context, id string, delta int) (int, error) {
	if !validID(id) {
		return 0, fmt.Errorf("%w: %s", packageserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("AdjustCredits"); err != nil {
		return 0, err
	}

	up, ok := r.s.userPackages[id]
	if !ok {
		return 0, packageserrors.ErrUserPackageNotFound
	}
	if delta < 0 && up.RemainingCredits < -delta {
		return 0, packageserrors.ErrBalanceGuard
	}
	up.RemainingCredits += delta
	r.s.record(ctx, func() {
		if cur, ok := r.s.userPackages[id]; ok {
			cur.RemainingCredits -= delta
		}
	})
	return up.RemainingCredits, nil
}

func (r *UserPackageRepo) ExpireBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, up := range r.s.userPackages {
		if up.Status == model.PackageActive && up.ExpiryDate.Before(cutoff) {
			up.Status = model.PackageExpired
			n++
		}
	}
	return n, nil
}

type PackageRepo struct {
	s *Store
}

func (r *PackageRepo) Create(_ context.Context, pkg *model.Package) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pkg.ID = r.s.newID()
	pkg.CreatedAt = r.s.clock.Now().UTC()
	stored := *pkg
	r.s.packages[pkg.ID] = &stored
	return nil
}

func (r *PackageRepo) FindByID(_ context.Context, id string) (*model.Package, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: %s", packageserrors.ErrInvalidID, id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	pkg, ok := r.s.packages[id]
	if !ok {
		return nil, packageserrors.ErrNotFound
	}
	out := *pkg
	return &out, nil
}

func (r *PackageRepo) FindByCountry(_ context.Context, country string) ([]*model.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Package
	for _, pkg := range r.s.packages {
		if pkg.Country == country {
			c := *pkg
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Price != out[k].Price {
			return out[i].Price < out[k].Price
		}
		return r.s.seq[out[i].ID] < r.s.seq[out[k].ID]
	})
	return out, nil
}
