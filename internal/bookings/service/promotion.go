package service

import (
	"context"
	"errors"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/internal/bookings/repository"
	"classbook/internal/events"
	scheduleserrors "classbook/internal/schedules/errors"
	schedulesrepo "classbook/internal/schedules/repository"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/lease"
	"classbook/pkg/model"
)

// Promoter moves waitlisted bookings into free seats, oldest first.
type Promoter struct {
	repo      repository.BookingRepository
	schedules schedulesrepo.ScheduleRepository
	leases    *lease.Coordinator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewPromoter(
	repo repository.BookingRepository,
	schedules schedulesrepo.ScheduleRepository,
	leases *lease.Coordinator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) *Promoter {
	return &Promoter{
		repo:      repo,
		schedules: schedules,
		leases:    leases,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

// Promote takes the schedule lease and fills free seats from the waitlist.
// It fails with a contention error when the lease is held elsewhere. Ended
// classes are left alone.
func (p *Promoter) Promote(ctx context.Context, scheduleID string) ([]*model.Booking, error) {
	schedule, err := p.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, scheduleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Class schedule", scheduleID)
		}
		if errors.Is(err, scheduleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid class schedule ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve class schedule", err)
	}
	if schedule.HasEnded(p.clock.Now()) {
		return nil, nil
	}

	var promoted []*model.Booking
	err = p.leases.WithLease(ctx, lease.ScheduleKey(scheduleID), p.cfg.LeaseTTL, func(ctx context.Context) error {
		var lockedErr error
		promoted, lockedErr = p.PromoteLocked(ctx, schedule)
		return lockedErr
	})
	if err != nil {
		return nil, leaseError(err, scheduleID, p.cfg)
	}
	return promoted, nil
}

// PromoteLocked must only run while the caller holds the schedule lease.
// Bookings only become BOOKED under that lease, so the count read at the
// start can only shrink while the loop runs. A waitlisted user who has since
// taken a seat in an overlapping class is passed over and keeps their place.
func (p *Promoter) PromoteLocked(ctx context.Context, schedule *model.Schedule) ([]*model.Booking, error) {
	booked, err := p.repo.CountBySchedule(ctx, schedule.ID, model.StatusBooked)
	if err != nil {
		return nil, apperrors.Internal("Failed to count bookings", err)
	}
	if booked >= int64(schedule.TotalSlots) {
		return nil, nil
	}

	waitlist, err := p.repo.FindBySchedule(ctx, schedule.ID, model.StatusWaitlist)
	if err != nil {
		return nil, apperrors.Internal("Failed to load waitlist", err)
	}

	var promoted []*model.Booking
	for _, b := range waitlist {
		if booked >= int64(schedule.TotalSlots) {
			break
		}

		clash, err := findOverlap(ctx, p.repo, p.schedules, b.UserID, schedule)
		if err != nil {
			return promoted, err
		}
		if clash != nil {
			p.cfg.Log.Info("Skipping waitlisted booking with overlapping class",
				"booking_id", b.ID,
				"user_id", b.UserID,
				"schedule_id", schedule.ID,
				"overlapping_schedule_id", clash.ID,
			)
			continue
		}

		now := p.clock.Now()
		err = p.repo.UpdateStatus(ctx, b.ID, model.StatusWaitlist, model.StatusBooked, now)
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			// canceled or refunded since the waitlist was read
			continue
		}
		if err != nil {
			return promoted, apperrors.Internal("Failed to promote booking", err)
		}

		b.Status = model.StatusBooked
		b.UpdatedAt = now.UTC()
		booked++
		promoted = append(promoted, b)

		publish(ctx, p.publisher, p.cfg, events.BookingEvent(events.TypePromoted, b, now))
		p.cfg.Log.Info("Waitlisted booking promoted",
			"booking_id", b.ID,
			"user_id", b.UserID,
			"schedule_id", schedule.ID,
		)
	}
	return promoted, nil
}
