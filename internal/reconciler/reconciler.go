// Package reconciler repairs what the synchronous booking path leaves behind:
// waitlisted credits stuck on classes that already ended, and free seats whose
// promotion was skipped because the schedule was busy.
package reconciler

import (
	"context"
	"errors"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	bookingsrepo "classbook/internal/bookings/repository"
	bookingsservice "classbook/internal/bookings/service"
	"classbook/internal/events"
	"classbook/internal/ledger"
	packagesrepo "classbook/internal/packages/repository"
	scheduleserrors "classbook/internal/schedules/errors"
	schedulesrepo "classbook/internal/schedules/repository"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	"classbook/pkg/lease"
	"classbook/pkg/model"
)

// Report counts what one pass did. Failures are logged and counted; they do
// not stop the pass.
type Report struct {
	Refunded        int `json:"refunded"`
	RefundFailures  int `json:"refund_failures"`
	SchedulesTried  int `json:"schedules_tried"`
	Promoted        int `json:"promoted"`
	SkippedBusy     int `json:"skipped_busy"`
	PromoteFailures int `json:"promote_failures"`
}

type Reconciler struct {
	bookings     bookingsrepo.BookingRepository
	schedules    schedulesrepo.ScheduleRepository
	userPackages packagesrepo.UserPackageRepository
	ledger       *ledger.Ledger
	leases       *lease.Coordinator
	promoter     *bookingsservice.Promoter
	publisher    events.Publisher
	clock        clock.Clock
	cfg          *config.Config
}

func New(
	bookings bookingsrepo.BookingRepository,
	schedules schedulesrepo.ScheduleRepository,
	userPackages packagesrepo.UserPackageRepository,
	leases *lease.Coordinator,
	promoter *bookingsservice.Promoter,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) *Reconciler {
	return &Reconciler{
		bookings:     bookings,
		schedules:    schedules,
		userPackages: userPackages,
		ledger:       ledger.New(userPackages, cfg.Log),
		leases:       leases,
		promoter:     promoter,
		publisher:    publisher,
		clock:        clk,
		cfg:          cfg,
	}
}

// RunOnce runs both phases. Only a failure to list work aborts the pass.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	var report Report
	started := r.clock.Now()

	if err := r.refundStaleWaitlist(ctx, &report); err != nil {
		return report, err
	}
	if err := r.retryPromotions(ctx, &report); err != nil {
		return report, err
	}

	r.cfg.Log.Info("Reconcile pass finished",
		"refunded", report.Refunded,
		"refund_failures", report.RefundFailures,
		"schedules_tried", report.SchedulesTried,
		"promoted", report.Promoted,
		"skipped_busy", report.SkippedBusy,
		"promote_failures", report.PromoteFailures,
		"duration", r.clock.Now().Sub(started),
	)
	return report, nil
}

// refundStaleWaitlist cancels and refunds WAITLIST bookings of ended classes.
// It takes no lease: the status compare-and-set is what keeps a booking from
// being refunded twice, and an ended class is never promoted.
func (r *Reconciler) refundStaleWaitlist(ctx context.Context, report *Report) error {
	waitlisted, err := r.bookings.FindByStatus(ctx, model.StatusWaitlist)
	if err != nil {
		return err
	}

	now := r.clock.Now()
	schedules := make(map[string]*model.Schedule)
	for _, b := range waitlisted {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sc, ok := schedules[b.ScheduleID]
		if !ok {
			sc, err = r.schedules.FindByID(ctx, b.ScheduleID)
			if err != nil {
				if !errors.Is(err, scheduleserrors.ErrNotFound) {
					r.cfg.Log.Error("Failed to load schedule for waitlist refund", "schedule_id", b.ScheduleID, "error", err)
					report.RefundFailures++
					continue
				}
				r.cfg.Log.Warn("Waitlisted booking references a missing schedule", "booking_id", b.ID, "schedule_id", b.ScheduleID)
				sc = nil
			}
			schedules[b.ScheduleID] = sc
		}
		if sc == nil || !sc.HasEnded(now) {
			continue
		}

		refunded, err := r.refundOne(ctx, b, sc)
		if err != nil {
			r.cfg.Log.Error("Waitlist refund failed", "booking_id", b.ID, "schedule_id", sc.ID, "error", err)
			report.RefundFailures++
			continue
		}
		if !refunded {
			continue
		}
		report.Refunded++
	}
	return nil
}

// refundOne reports false when the booking had already left WAITLIST.
func (r *Reconciler) refundOne(ctx context.Context, b *model.Booking, sc *model.Schedule) (bool, error) {
	now := r.clock.Now()
	err := r.bookings.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := r.bookings.UpdateStatus(ctx, b.ID, model.StatusWaitlist, model.StatusCanceled, now); err != nil {
			return err
		}
		entry, err := r.userPackages.FindByID(ctx, b.UserPackageID)
		if err != nil {
			return err
		}
		return r.ledger.Credit(ctx, entry, sc.RequiredCredits)
	})
	if errors.Is(err, bookingserrors.ErrStatusChanged) {
		r.cfg.Log.Debug("Waitlisted booking already settled", "booking_id", b.ID)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	refunded := *b
	refunded.Status = model.StatusCanceled
	ev := events.BookingEvent(events.TypeWaitlistRefunded, &refunded, now)
	ev.Refunded = sc.RequiredCredits
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.cfg.Log.Warn("Failed to publish booking event", "type", ev.Type, "booking_id", b.ID, "error", err)
	}

	r.cfg.Log.Info("Waitlisted booking refunded",
		"booking_id", b.ID,
		"user_id", b.UserID,
		"schedule_id", sc.ID,
		"refunded", sc.RequiredCredits,
	)
	return true, nil
}

// retryPromotions fills free seats on every schedule that has not ended. A
// busy schedule is skipped; whoever holds its lease, or the next pass, will
// promote.
func (r *Reconciler) retryPromotions(ctx context.Context, report *Report) error {
	active, err := r.schedules.FindActive(ctx, r.clock.Now())
	if err != nil {
		return err
	}

	for _, sc := range active {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.SchedulesTried++

		key := lease.ScheduleKey(sc.ID)
		held, err := r.leases.IsHeld(ctx, key)
		if err != nil {
			r.cfg.Log.Warn("Lease check failed", "schedule_id", sc.ID, "error", err)
			report.PromoteFailures++
			continue
		}
		if held {
			report.SkippedBusy++
			continue
		}

		var promoted []*model.Booking
		err = r.leases.WithLease(ctx, key, r.cfg.LeaseTTL, func(ctx context.Context) error {
			var lockedErr error
			promoted, lockedErr = r.promoter.PromoteLocked(ctx, sc)
			return lockedErr
		})
		report.Promoted += len(promoted)
		switch {
		case err == nil:
		case errors.Is(err, lease.ErrNotAcquired):
			report.SkippedBusy++
		default:
			r.cfg.Log.Error("Promotion retry failed", "schedule_id", sc.ID, "error", err)
			report.PromoteFailures++
		}
	}
	return nil
}

func (r *Reconciler) Name() string {
	return "reconciler"
}

// Run reconciles once immediately and then on every tick until ctx is
// cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	interval := r.cfg.ReconcileInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.cfg.Log.Info("Reconciler started", "interval", interval)
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.cfg.Log.Error("Reconcile pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.cfg.Log.Info("Reconciler stopped")
			return nil
		case <-ticker.C:
		}
	}
}
