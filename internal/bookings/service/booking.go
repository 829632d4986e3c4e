package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "classbook/internal/bookings/errors"
	"classbook/internal/bookings/repository"
	"classbook/internal/bookings/validator"
	"classbook/internal/events"
	"classbook/internal/ledger"
	packageserrors "classbook/internal/packages/errors"
	packagesrepo "classbook/internal/packages/repository"
	scheduleserrors "classbook/internal/schedules/errors"
	schedulesrepo "classbook/internal/schedules/repository"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/lease"
	"classbook/pkg/model"
)

// cancelAttempts bounds how often Cancel re-reads a booking whose status was
// changed under it, e.g. a waitlisted booking promoted mid-cancel.
const cancelAttempts = 3

type BookingService interface {
	Book(ctx context.Context, userID string, req *model.BookingRequest) (*model.BookingResult, error)
	Cancel(ctx context.Context, bookingID, userID string) error
	CheckIn(ctx context.Context, bookingID, userID string) error
	GetByID(ctx context.Context, bookingID, userID string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Booking, error)
}

type bookingService struct {
	repo         repository.BookingRepository
	schedules    schedulesrepo.ScheduleRepository
	userPackages packagesrepo.UserPackageRepository
	ledger       *ledger.Ledger
	leases       *lease.Coordinator
	promoter     *Promoter
	publisher    events.Publisher
	validator    *validator.BookingValidator
	clock        clock.Clock
	cfg          *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	schedules schedulesrepo.ScheduleRepository,
	userPackages packagesrepo.UserPackageRepository,
	leases *lease.Coordinator,
	promoter *Promoter,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:         repo,
		schedules:    schedules,
		userPackages: userPackages,
		ledger:       ledger.New(userPackages, cfg.Log),
		leases:       leases,
		promoter:     promoter,
		publisher:    publisher,
		validator:    validator,
		clock:        clk,
		cfg:          cfg,
	}
}

func (s *bookingService) Book(ctx context.Context, userID string, req *model.BookingRequest) (*model.BookingResult, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "user_id", userID, "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	schedule, err := s.loadSchedule(ctx, req.ClassScheduleID)
	if err != nil {
		return nil, err
	}
	entry, err := s.loadUserPackage(ctx, req.UserPackageID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, userID, schedule, entry); err != nil {
		s.cfg.Log.Info("Booking rejected",
			"user_id", userID,
			"schedule_id", schedule.ID,
			"user_package_id", entry.ID,
			"reason", err,
		)
		return nil, err
	}

	var booking *model.Booking
	err = s.withScheduleLease(ctx, schedule.ID, func(ctx context.Context) error {
		// the checks above are advisory; only what is read here decides
		if err := s.checkDuplicate(ctx, userID, schedule.ID); err != nil {
			return err
		}
		booked, err := s.repo.CountBySchedule(ctx, schedule.ID, model.StatusBooked)
		if err != nil {
			return apperrors.Internal("Failed to count bookings", err)
		}

		status := model.StatusWaitlist
		if booked < int64(schedule.TotalSlots) {
			status = model.StatusBooked
		}

		now := s.clock.Now().UTC()
		booking = &model.Booking{
			UserID:        userID,
			ScheduleID:    schedule.ID,
			UserPackageID: entry.ID,
			Status:        status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		debited := *entry
		err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if err := s.ledger.Debit(ctx, &debited, schedule.RequiredCredits); err != nil {
				return s.ledgerError(err, entry.ID)
			}
			if err := s.repo.Create(ctx, booking); err != nil {
				return apperrors.Internal("Failed to create booking", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		*entry = debited
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeContention) {
			s.cfg.Log.Error("Failed to book class", "user_id", userID, "schedule_id", schedule.ID, "error", err)
		}
		return nil, err
	}

	eventType := events.TypeBooked
	if booking.Status == model.StatusWaitlist {
		eventType = events.TypeWaitlisted
	}
	s.publish(ctx, events.BookingEvent(eventType, booking, booking.CreatedAt))

	s.cfg.Log.Info("Class booked",
		"booking_id", booking.ID,
		"user_id", userID,
		"schedule_id", schedule.ID,
		"status", booking.Status,
		"remaining_credits", entry.RemainingCredits,
	)
	return &model.BookingResult{
		BookingID:        booking.ID,
		ScheduleID:       schedule.ID,
		ClassName:        schedule.ClassName,
		Status:           booking.Status,
		RemainingCredits: entry.RemainingCredits,
	}, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID, userID string) error {
	var (
		booking  *model.Booking
		schedule *model.Schedule
		refunded int
		done     bool
		err      error
	)

	for attempt := 0; attempt < cancelAttempts && !done; attempt++ {
		booking, err = s.loadOwnedBooking(ctx, bookingID, userID)
		if err != nil {
			return err
		}

		switch booking.Status {
		case model.StatusCanceled:
			s.cfg.Log.Debug("Booking already canceled", "booking_id", bookingID)
			return nil
		case model.StatusCheckedIn:
			return apperrors.BusinessRule("Checked-in bookings cannot be canceled", bookingserrors.ErrCheckedIn)
		}

		if schedule == nil {
			schedule, err = s.loadSchedule(ctx, booking.ScheduleID)
			if err != nil {
				return err
			}
		}

		refunded, err = s.cancelOnce(ctx, booking, schedule)
		switch {
		case err == nil:
			done = true
		case errors.Is(err, bookingserrors.ErrStatusChanged):
			s.cfg.Log.Debug("Booking changed during cancel, re-reading", "booking_id", bookingID, "attempt", attempt+1)
		default:
			s.cfg.Log.Error("Failed to cancel booking", "booking_id", bookingID, "error", err)
			return err
		}
	}
	if !done {
		return apperrors.Contention("Booking is being updated, please retry")
	}

	canceled := *booking
	canceled.Status = model.StatusCanceled
	ev := events.BookingEvent(events.TypeCanceled, &canceled, s.clock.Now())
	ev.Refunded = refunded
	s.publish(ctx, ev)

	s.cfg.Log.Info("Booking canceled",
		"booking_id", booking.ID,
		"user_id", userID,
		"schedule_id", booking.ScheduleID,
		"previous_status", booking.Status,
		"refunded", refunded,
	)

	s.promoteAfterCancel(ctx, schedule)
	return nil
}

// cancelOnce moves booking to CANCELED and applies the refund in one
// transaction. It returns the refunded amount, or ErrStatusChanged if the
// booking is no longer in the status it was read with.
func (s *bookingService) cancelOnce(ctx context.Context, booking *model.Booking, schedule *model.Schedule) (int, error) {
	now := s.clock.Now()
	refund := 0
	switch booking.Status {
	case model.StatusWaitlist:
		refund = schedule.RequiredCredits
	case model.StatusBooked:
		if schedule.StartTime.After(now.Add(s.cfg.RefundWindow)) {
			refund = schedule.RequiredCredits
		}
	}

	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, booking.ID, booking.Status, model.StatusCanceled, now); err != nil {
			if errors.Is(err, bookingserrors.ErrStatusChanged) {
				return err
			}
			return apperrors.Internal("Failed to cancel booking", err)
		}
		if refund == 0 {
			return nil
		}

		entry, err := s.userPackages.FindByID(ctx, booking.UserPackageID)
		if err != nil {
			return apperrors.Internal("Failed to load user package for refund", err)
		}
		if err := s.ledger.Credit(ctx, entry, refund); err != nil {
			return apperrors.Internal("Failed to refund credits", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return refund, nil
}

// promoteAfterCancel never fails the cancel. When the schedule is busy the
// work is handed to the reconciler.
func (s *bookingService) promoteAfterCancel(ctx context.Context, schedule *model.Schedule) {
	if schedule.HasEnded(s.clock.Now()) {
		return
	}

	_, err := s.promoter.Promote(ctx, schedule.ID)
	if err == nil {
		return
	}
	if apperrors.HasCode(err, apperrors.CodeContention) {
		s.cfg.Log.Info("Promotion deferred, schedule busy", "schedule_id", schedule.ID)
		s.publish(ctx, events.Event{
			Type:       events.TypePromotionDeferred,
			ScheduleID: schedule.ID,
			OccurredAt: s.clock.Now().UTC(),
		})
		return
	}
	s.cfg.Log.Warn("Promotion after cancel failed", "schedule_id", schedule.ID, "error", err)
}

func (s *bookingService) CheckIn(ctx context.Context, bookingID, userID string) error {
	booking, err := s.loadOwnedBooking(ctx, bookingID, userID)
	if err != nil {
		return err
	}
	if booking.Status != model.StatusBooked {
		return apperrors.BusinessRule(
			fmt.Sprintf("Only booked users can check in, booking is %s", booking.Status),
			bookingserrors.ErrNotBooked,
		)
	}

	schedule, err := s.loadSchedule(ctx, booking.ScheduleID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if now.Before(schedule.StartTime) {
		return apperrors.BusinessRule("Cannot check in before class start time", bookingserrors.ErrCheckInTooEarly)
	}

	err = s.repo.UpdateStatus(ctx, booking.ID, model.StatusBooked, model.StatusCheckedIn, now)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return apperrors.BusinessRule("Only booked users can check in", bookingserrors.ErrNotBooked)
		}
		s.cfg.Log.Error("Failed to check in", "booking_id", booking.ID, "error", err)
		return apperrors.Internal("Failed to check in", err)
	}

	booking.Status = model.StatusCheckedIn
	s.publish(ctx, events.BookingEvent(events.TypeCheckedIn, booking, now))
	s.cfg.Log.Info("Checked in", "booking_id", booking.ID, "user_id", userID, "schedule_id", booking.ScheduleID)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	// someone else's booking reads as missing
	if booking.UserID != userID {
		return nil, apperrors.NotFoundWithID("Booking", bookingID)
	}
	return booking, nil
}

func (s *bookingService) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	bookings, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, nil
}

// --- Helpers ---

func (s *bookingService) checkEligibility(ctx context.Context, userID string, schedule *model.Schedule, entry *model.UserPackage) error {
	now := s.clock.Now()

	if schedule.HasEnded(now) {
		return apperrors.BusinessRule("Class has already ended", bookingserrors.ErrClassEnded)
	}
	if entry.UserID != userID {
		return apperrors.BusinessRule("Package does not belong to user", bookingserrors.ErrPackageNotOwned)
	}
	if entry.Country != schedule.Country {
		return apperrors.BusinessRule(
			fmt.Sprintf("Package country %s does not match class country %s", entry.Country, schedule.Country),
			bookingserrors.ErrCountryMismatch,
		)
	}
	if entry.IsExpired(now) {
		return apperrors.BusinessRule("Package has expired", bookingserrors.ErrPackageExpired)
	}
	if entry.RemainingCredits < schedule.RequiredCredits {
		return apperrors.BusinessRule(
			fmt.Sprintf("Insufficient credits: class needs %d, package has %d", schedule.RequiredCredits, entry.RemainingCredits),
			bookingserrors.ErrInsufficientCredits,
		)
	}
	if err := s.checkDuplicate(ctx, userID, schedule.ID); err != nil {
		return err
	}
	return s.checkOverlap(ctx, userID, schedule)
}

func (s *bookingService) checkDuplicate(ctx context.Context, userID, scheduleID string) error {
	existing, err := s.repo.FindByUserAndSchedule(ctx, userID, scheduleID)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}
	for _, b := range existing {
		if b.Status != model.StatusCanceled {
			return apperrors.BusinessRule("Already booked or waitlisted for this class", bookingserrors.ErrDuplicate)
		}
	}
	return nil
}

func (s *bookingService) checkOverlap(ctx context.Context, userID string, schedule *model.Schedule) error {
	other, err := findOverlap(ctx, s.repo, s.schedules, userID, schedule)
	if err != nil {
		return err
	}
	if other != nil {
		return apperrors.BusinessRule(
			fmt.Sprintf("Overlaps with booked class %s (%s - %s)",
				other.ClassName,
				other.StartTime.Format(time.RFC3339),
				other.EndTime.Format(time.RFC3339),
			),
			bookingserrors.ErrOverlap,
		)
	}
	return nil
}

// findOverlap returns another class the user occupies a seat in whose time
// range overlaps schedule, or nil.
func findOverlap(
	ctx context.Context,
	repo repository.BookingRepository,
	schedules schedulesrepo.ScheduleRepository,
	userID string,
	schedule *model.Schedule,
) (*model.Schedule, error) {
	bookings, err := repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range bookings {
		if !b.Status.Occupies() || b.ScheduleID == schedule.ID {
			continue
		}
		other, err := schedules.FindByID(ctx, b.ScheduleID)
		if err != nil {
			if errors.Is(err, scheduleserrors.ErrNotFound) {
				continue
			}
			return nil, apperrors.Internal("Failed to load booked class", err)
		}
		if schedule.Overlaps(other) {
			return other, nil
		}
	}
	return nil, nil
}

func (s *bookingService) withScheduleLease(ctx context.Context, scheduleID string, fn func(ctx context.Context) error) error {
	err := s.leases.WithLease(ctx, lease.ScheduleKey(scheduleID), s.cfg.LeaseTTL, fn)
	return leaseError(err, scheduleID, s.cfg)
}

func (s *bookingService) loadSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, scheduleserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Class schedule", id)
		}
		if errors.Is(err, scheduleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid class schedule ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve class schedule", err)
	}
	return schedule, nil
}

func (s *bookingService) loadUserPackage(ctx context.Context, id string) (*model.UserPackage, error) {
	entry, err := s.userPackages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, packageserrors.ErrUserPackageNotFound) {
			return nil, apperrors.NotFoundWithID("User package", id)
		}
		if errors.Is(err, packageserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user package ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user package", err)
	}
	return entry, nil
}

func (s *bookingService) loadBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) loadOwnedBooking(ctx context.Context, id, userID string) (*model.Booking, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, apperrors.BusinessRule("Booking does not belong to user", bookingserrors.ErrNotOwner)
	}
	return booking, nil
}

func (s *bookingService) ledgerError(err error, entryID string) error {
	if errors.Is(err, model.ErrInsufficientCredits) {
		return apperrors.BusinessRule("Insufficient credits", bookingserrors.ErrInsufficientCredits)
	}
	return apperrors.Internal(fmt.Sprintf("Failed to debit user package %s", entryID), err)
}

func (s *bookingService) publish(ctx context.Context, ev events.Event) {
	publish(ctx, s.publisher, s.cfg, ev)
}

func publish(ctx context.Context, p events.Publisher, cfg *config.Config, ev events.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		cfg.Log.Warn("Failed to publish booking event",
			"type", ev.Type,
			"schedule_id", ev.ScheduleID,
			"booking_id", ev.BookingID,
			"error", err,
		)
	}
}

// leaseError maps lease failures to the error kinds callers act on. Errors
// returned by fn pass through unchanged.
func leaseError(err error, scheduleID string, cfg *config.Config) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, lease.ErrNotAcquired) {
		cfg.Log.Info("Schedule busy", "schedule_id", scheduleID)
		return apperrors.Contention("Class is being booked by another request, please retry")
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Upstream("Lock service unavailable", err)
}
