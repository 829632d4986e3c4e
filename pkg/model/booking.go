package model

import "time"

type BookingStatus string

const (
	StatusBooked    BookingStatus = "BOOKED"
	StatusWaitlist  BookingStatus = "WAITLIST"
	StatusCanceled  BookingStatus = "CANCELED"
	StatusCheckedIn BookingStatus = "CHECKED_IN"
)

// Booking links a user, a schedule and the ledger entry that paid for it.
// UserPackageID is the only entry ever refunded for this booking.
type Booking struct {
	ID            string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        string        `json:"user_id" bson:"user_id"`
	ScheduleID    string        `json:"schedule_id" bson:"schedule_id"`
	UserPackageID string        `json:"user_package_id" bson:"user_package_id"`
	Status        BookingStatus `json:"status" bson:"status"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

// BookingRequest is the body of a book call.
type BookingRequest struct {
	ClassScheduleID string `json:"class_schedule_id" validate:"required,mongodb"`
	UserPackageID   string `json:"user_package_id" validate:"required,mongodb"`
}

type BookingResult struct {
	BookingID        string        `json:"booking_id"`
	ScheduleID       string        `json:"schedule_id"`
	ClassName        string        `json:"class_name"`
	Status           BookingStatus `json:"status"`
	RemainingCredits int           `json:"remaining_credits"`
}

var transitions = map[BookingStatus][]BookingStatus{
	StatusBooked:   {StatusCanceled, StatusCheckedIn},
	StatusWaitlist: {StatusCanceled, StatusBooked},
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCanceled || s == StatusCheckedIn
}

// Occupies reports whether a booking in this status blocks the user's time
// window for overlap checks.
func (s BookingStatus) Occupies() bool {
	return s == StatusBooked || s == StatusCheckedIn
}

func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
