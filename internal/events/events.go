// Package events publishes booking lifecycle notifications. Publishing is
// best effort: callers log failures and carry on, since the store is the
// source of truth.
package events

import (
	"context"
	"time"

	"classbook/pkg/model"
)

const (
	TypeBooked            = "booking.booked"
	TypeWaitlisted        = "booking.waitlisted"
	TypeCanceled          = "booking.canceled"
	TypeCheckedIn         = "booking.checked_in"
	TypePromoted          = "booking.promoted"
	TypeWaitlistRefunded  = "booking.waitlist_refunded"
	TypePromotionDeferred = "promotion.deferred"
	TypePackagePurchased  = "package.purchased"

	SchemaVersion = "1"
)

type Event struct {
	Type          string              `json:"type"`
	ScheduleID    string              `json:"schedule_id,omitempty"`
	BookingID     string              `json:"booking_id,omitempty"`
	UserID        string              `json:"user_id,omitempty"`
	UserPackageID string              `json:"user_package_id,omitempty"`
	Status        model.BookingStatus `json:"status,omitempty"`
	Refunded      int                 `json:"refunded,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}

func BookingEvent(eventType string, b *model.Booking, at time.Time) Event {
	return Event{
		Type:          eventType,
		ScheduleID:    b.ScheduleID,
		BookingID:     b.ID,
		UserID:        b.UserID,
		UserPackageID: b.UserPackageID,
		Status:        b.Status,
		OccurredAt:    at.UTC(),
	}
}
