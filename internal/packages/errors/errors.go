package errors

import "errors"

var (
	ErrNotFound = errors.New("package not found")

	ErrUserPackageNotFound = errors.New("user package not found")

	ErrInvalidID = errors.New("invalid package ID format")

	ErrInvalidCountry = errors.New("unsupported country")

	// ErrBalanceGuard is returned by AdjustCredits when applying the delta
	// would take the balance below zero.
	ErrBalanceGuard = errors.New("credit balance guard rejected update")

	ErrPaymentDeclined = errors.New("payment declined")
)
