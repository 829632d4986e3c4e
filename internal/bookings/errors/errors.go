package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrStatusChanged means a compare-and-set status write found the booking
	// in a different status than expected; somebody else already moved it.
	ErrStatusChanged = errors.New("booking status changed concurrently")

	ErrNotOwner = errors.New("booking does not belong to user")

	ErrPackageNotOwned = errors.New("package does not belong to user")

	ErrCountryMismatch = errors.New("package country does not match class country")

	ErrPackageExpired = errors.New("package expired")

	ErrInsufficientCredits = errors.New("insufficient credits")

	ErrOverlap = errors.New("overlapping booked class")

	ErrDuplicate = errors.New("already booked or waitlisted for this class")

	ErrClassEnded = errors.New("class has already ended")

	ErrNotBooked = errors.New("only booked users can check in")

	ErrCheckInTooEarly = errors.New("cannot check in before class start time")

	ErrCheckedIn = errors.New("checked-in bookings cannot be canceled")
)
