package ledger

import (
	"context"
	"errors"
	"testing"

	packageserrors "classbook/internal/packages/errors"
	"classbook/pkg/logger"
	"classbook/pkg/model"
)

type mockStore struct {
	adjustFunc func(ctx context.Context, id string, delta int) error
	balance    int
	deltas     []int
}

func (m *mockStore) AdjustCredits(ctx context.Context, id string, delta int) (int, error) {
	if m.adjustFunc != nil {
		if err := m.adjustFunc(ctx, id, delta); err != nil {
			return 0, err
		}
	}
	m.deltas = append(m.deltas, delta)
	m.balance += delta
	return m.balance, nil
}

func TestDebit(t *testing.T) {
	storeErr := errors.New("connection reset")

	tests := []struct {
		name       string
		balance    int
		amount     int
		adjustErr  error
		stored     int
		wantErr    error
		wantAfter  int
		wantDeltas int
	}{
		{name: "success", balance: 5, amount: 2, wantAfter: 3, wantDeltas: 1},
		{name: "exact balance", balance: 2, amount: 2, wantAfter: 0, wantDeltas: 1},
		{name: "insufficient never reaches store", balance: 1, amount: 2, wantErr: model.ErrInsufficientCredits, wantAfter: 1},
		{name: "store guard maps to insufficient", balance: 5, amount: 2, adjustErr: packageserrors.ErrBalanceGuard, wantErr: model.ErrInsufficientCredits, wantAfter: 5},
		{name: "stale entry takes stored balance", balance: 5, stored: 9, amount: 2, wantAfter: 7, wantDeltas: 1},
		{name: "store failure leaves entry", balance: 5, amount: 2, adjustErr: storeErr, wantErr: storeErr, wantAfter: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.stored
			if stored == 0 {
				stored = tt.balance
			}
			store := &mockStore{
				adjustFunc: func(ctx context.Context, id string, delta int) error { return tt.adjustErr },
				balance:    stored,
			}
			l := New(store, logger.Discard())
			entry := &model.UserPackage{ID: "up1", RemainingCredits: tt.balance}

			err := l.Debit(context.Background(), entry, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Debit() error = %v, want %v", err, tt.wantErr)
			}
			if entry.RemainingCredits != tt.wantAfter {
				t.Errorf("remaining = %d, want %d", entry.RemainingCredits, tt.wantAfter)
			}
			if len(store.deltas) != tt.wantDeltas {
				t.Errorf("store writes = %d, want %d", len(store.deltas), tt.wantDeltas)
			}
			if tt.wantDeltas == 1 && store.deltas[0] != -tt.amount {
				t.Errorf("delta = %d, want %d", store.deltas[0], -tt.amount)
			}
		})
	}
}

func TestCredit_ExpiredEntry(t *testing.T) {
	store := &mockStore{}
	l := New(store, logger.Discard())
	entry := &model.UserPackage{ID: "up1", RemainingCredits: 0, Status: model.PackageExpired}

	if err := l.Credit(context.Background(), entry, 3); err != nil {
		t.Fatalf("Credit() error = %v", err)
	}
	if entry.RemainingCredits != 3 {
		t.Errorf("remaining = %d, want 3", entry.RemainingCredits)
	}
	if len(store.deltas) != 1 || store.deltas[0] != 3 {
		t.Errorf("deltas = %v, want [3]", store.deltas)
	}
}
