// Package ledger applies credit movements to user package entries.
package ledger

import (
	"context"
	"errors"
	"fmt"

	packageserrors "classbook/internal/packages/errors"
	"classbook/pkg/logger"
	"classbook/pkg/model"
)

// Store persists a balance change. AdjustCredits must refuse a negative delta
// the stored balance cannot cover and returns the balance after the change.
type Store interface {
	AdjustCredits(ctx context.Context, id string, delta int) (int, error)
}

type Ledger struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Ledger {
	return &Ledger{
		store: store,
		log:   log,
	}
}

// Debit checks the rule on entry, persists the change, and only then updates
// entry, taking the balance from the store since entry may be a stale read.
// On error entry is left untouched.
func (l *Ledger) Debit(ctx context.Context, entry *model.UserPackage, amount int) error {
	next := *entry
	if err := next.Debit(amount); err != nil {
		return err
	}

	balance, err := l.store.AdjustCredits(ctx, entry.ID, -amount)
	if err != nil {
		if errors.Is(err, packageserrors.ErrBalanceGuard) {
			return model.ErrInsufficientCredits
		}
		return fmt.Errorf("failed to debit user package %s: %w", entry.ID, err)
	}

	next.RemainingCredits = balance
	*entry = next
	l.log.Debug("Credits debited",
		"user_package_id", entry.ID,
		"amount", amount,
		"remaining_credits", entry.RemainingCredits,
	)
	return nil
}

// Credit returns amount to entry. Expired entries are credited too.
func (l *Ledger) Credit(ctx context.Context, entry *model.UserPackage, amount int) error {
	next := *entry
	if err := next.Credit(amount); err != nil {
		return err
	}

	balance, err := l.store.AdjustCredits(ctx, entry.ID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit user package %s: %w", entry.ID, err)
	}

	next.RemainingCredits = balance
	*entry = next
	l.log.Debug("Credits refunded",
		"user_package_id", entry.ID,
		"amount", amount,
		"remaining_credits", entry.RemainingCredits,
	)
	return nil
}
