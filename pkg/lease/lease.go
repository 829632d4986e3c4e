package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classbook/pkg/clock"
	"classbook/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultTTL        = 5 * time.Second
	ScheduleKeyPrefix = "class_lock:"
)

// ErrNotAcquired is returned when another holder owns the key. Acquisition
// never waits.
var ErrNotAcquired = errors.New("lease held by another owner")

// Store is the shared key/value backend holding leases. SetIfAbsent must be a
// single atomic set-if-absent with expiry, and CompareAndDelete must delete
// only when the stored token matches. Get ignores expired entries.
type Store interface {
	SetIfAbsent(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (token string, ok bool, err error)
	CompareAndDelete(ctx context.Context, key, token string) (bool, error)
}

// Lease is proof of holding a key. The token is the fencing value used on
// release.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

type Coordinator struct {
	store Store
	clock clock.Clock
	log   *logger.Logger
}

func NewCoordinator(store Store, clk clock.Clock, log *logger.Logger) *Coordinator {
	return &Coordinator{
		store: store,
		clock: clk,
		log:   log,
	}
}

func ScheduleKey(scheduleID string) string {
	return ScheduleKeyPrefix + scheduleID
}

func (c *Coordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	token := uuid.NewString()

	ok, err := c.store.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lease{
		Key:       key,
		Token:     token,
		ExpiresAt: c.clock.Now().Add(ttl),
	}, nil
}

// Release deletes the lease only if it is still ours. A false result means
// the lease expired and somebody else may hold the key now; that is not an
// error.
func (c *Coordinator) Release(ctx context.Context, l *Lease) (bool, error) {
	if l == nil {
		return false, nil
	}
	released, err := c.store.CompareAndDelete(ctx, l.Key, l.Token)
	if err != nil {
		return false, fmt.Errorf("failed to release lease %s: %w", l.Key, err)
	}
	return released, nil
}

// IsHeld reports whether anyone currently holds key. The answer may be stale
// by the time the caller acts on it; use it only to skip work early.
func (c *Coordinator) IsHeld(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read lease %s: %w", key, err)
	}
	return ok, nil
}

// WithLease runs fn while holding key and releases it on every exit path,
// panics included.
func (c *Coordinator) WithLease(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	l, err := c.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer c.releaseQuietly(l)

	return fn(ctx)
}

func (c *Coordinator) releaseQuietly(l *Lease) {
	// the caller's context may already be canceled; release must still run
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTTL)
	defer cancel()

	released, err := c.Release(ctx, l)
	if err != nil {
		c.log.Warn("Failed to release lease", "key", l.Key, "error", err)
		return
	}
	if !released {
		c.log.Warn("Lease expired before release", "key", l.Key)
	}
}
