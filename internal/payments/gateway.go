// Package payments charges users for package purchases.
package payments

import (
	"context"
	"errors"
)

// ErrDeclined is returned when the provider refuses the charge. Any other
// error means the provider could not be reached or answered garbage.
var ErrDeclined = errors.New("payment declined")

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type ChargeRequest struct {
	OrderID   string
	UserID    string
	Amount    int64
	Currency  string
	CardToken string
	ItemID    string
	ItemName  string
}

type ChargeResult struct {
	Reference string
	Status    string
}
