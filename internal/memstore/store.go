// Package memstore is an in-process implementation of the schedule, booking,
// package and user package repositories used by tests. Nothing in the
// binaries wires it.
package memstore

import (
	"context"
	"sort"
	"sync"

	"classbook/pkg/clock"
	mongotx "classbook/pkg/db/mongo"
	"classbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu    sync.Mutex
	clock clock.Clock

	schedules    map[string]*model.Schedule
	bookings     map[string]*model.Booking
	userPackages map[string]*model.UserPackage
	packages     map[string]*model.Package

	// seq records insertion order and breaks created_at ties.
	seq    map[string]uint64
	next   uint64
	faults map[string]error
}

func New(clk clock.Clock) *Store {
	return &Store{
		clock:        clk,
		schedules:    make(map[string]*model.Schedule),
		bookings:     make(map[string]*model.Booking),
		userPackages: make(map[string]*model.UserPackage),
		packages:     make(map[string]*model.Package),
		seq:          make(map[string]uint64),
		faults:       make(map[string]error),
	}
}

func (s *Store) Schedules() *ScheduleRepo {
	return &ScheduleRepo{s: s}
}

func (s *Store) Bookings() *BookingRepo {
	return &BookingRepo{s: s}
}

func (s *Store) UserPackages() *UserPackageRepo {
	return &UserPackageRepo{s: s}
}

func (s *Store) Packages() *PackageRepo {
	return &PackageRepo{s: s}
}

// FailNext makes the next call to op return err instead of running. Op names
// are the repository method names, e.g. "AdjustCredits".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with s.mu held.
func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return err
}

// newID must be called with s.mu held.
func (s *Store) newID() string {
	id := primitive.NewObjectID().Hex()
	s.next++
	s.seq[id] = s.next
	return id
}

type journalKey struct{}

// journal collects undo steps for writes made inside ExecuteTransaction.
// Steps are inverse operations rather than snapshots so a rollback does not
// clobber writes made concurrently by other callers.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(journalKey{}).(*journal)
	return j
}

// record must be called with s.mu held. Undo steps also run with s.mu held.
func (s *Store) record(ctx context.Context, undo func()) {
	j := journalFrom(ctx)
	if j == nil {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, undo)
	j.mu.Unlock()
}

// ExecuteTransaction runs fn and reverts every write it made if fn fails.
// Nested calls join the outer transaction.
func (s *Store) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	err := fn(context.WithValue(ctx, journalKey{}, j))
	if err == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	return err
}

// sortBookings must be called with s.mu held.
func (s *Store) sortBookings(bookings []*model.Booking) {
	sort.SliceStable(bookings, func(i, k int) bool {
		a, b := bookings[i], bookings[k]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return s.seq[a.ID] < s.seq[b.ID]
	})
}
