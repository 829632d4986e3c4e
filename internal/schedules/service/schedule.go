package service

import (
	"context"
	"errors"

	scheduleerrors "classbook/internal/schedules/errors"
	"classbook/internal/schedules/repository"
	"classbook/internal/schedules/validator"
	"classbook/pkg/clock"
	"classbook/pkg/config"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/locale"
	"classbook/pkg/model"
	"classbook/pkg/sanitizer"
)

// BookingCounter reports BOOKED seats per schedule. Seat counts are never
// stored on the schedule itself.
type BookingCounter interface {
	CountBySchedule(ctx context.Context, scheduleID string, status model.BookingStatus) (int64, error)
	CountBySchedules(ctx context.Context, scheduleIDs []string, status model.BookingStatus) (map[string]int64, error)
}

type ScheduleService interface {
	Create(ctx context.Context, sc *model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.ScheduleView, error)
	ListByCountry(ctx context.Context, country string, upcomingOnly bool) ([]*model.ScheduleView, error)
}

type scheduleService struct {
	repo      repository.ScheduleRepository
	bookings  BookingCounter
	validator *validator.ScheduleValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	bookings BookingCounter,
	validator *validator.ScheduleValidator,
	clk clock.Clock,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *scheduleService) Create(ctx context.Context, sc *model.Schedule) error {
	s.sanitize(sc)

	if err := s.validator.Validate(sc); err != nil {
		s.cfg.Log.Warn("Schedule validation failed",
			"class_name", sc.ClassName,
			"country", sc.Country,
			"error", err,
		)
		return apperrors.Validation("Schedule validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	if !sc.StartTime.After(s.clock.Now()) {
		return apperrors.Validation("Schedule validation failed", map[string]any{
			"error": "start_time must be in the future",
		})
	}

	if err := s.repo.Create(ctx, sc); err != nil {
		s.cfg.Log.Error("Failed to create schedule",
			"class_name", sc.ClassName,
			"country", sc.Country,
			"error", err,
		)
		return apperrors.Internal("Failed to create schedule", err)
	}

	s.cfg.Log.Info("Schedule created successfully",
		"id", sc.ID,
		"class_name", sc.ClassName,
		"country", sc.Country,
		"start_time", sc.StartTime,
		"total_slots", sc.TotalSlots,
	)
	return nil
}

func (s *scheduleService) GetByID(ctx context.Context, id string) (*model.ScheduleView, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, scheduleerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Schedule", id)
		}
		if errors.Is(err, scheduleerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid schedule ID format")
		}
		s.cfg.Log.Error("Failed to get schedule by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve schedule", err)
	}

	booked, err := s.bookings.CountBySchedule(ctx, sc.ID, model.StatusBooked)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "schedule_id", sc.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedule", err)
	}

	return model.NewScheduleView(sc, booked), nil
}

func (s *scheduleService) ListByCountry(ctx context.Context, country string, upcomingOnly bool) ([]*model.ScheduleView, error) {
	code, ok := locale.ParseCountry(country)
	if !ok {
		return nil, apperrors.InvalidInput("Unsupported country: " + country)
	}

	schedules, err := s.repo.FindByCountry(ctx, code)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedules", "country", code, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedules", err)
	}

	if upcomingOnly {
		now := s.clock.Now()
		kept := schedules[:0]
		for _, sc := range schedules {
			if !sc.HasEnded(now) {
				kept = append(kept, sc)
			}
		}
		schedules = kept
	}

	ids := make([]string, 0, len(schedules))
	for _, sc := range schedules {
		ids = append(ids, sc.ID)
	}
	counts, err := s.bookings.CountBySchedules(ctx, ids, model.StatusBooked)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "country", code, "error", err)
		return nil, apperrors.Internal("Failed to retrieve schedules", err)
	}

	views := make([]*model.ScheduleView, 0, len(schedules))
	for _, sc := range schedules {
		views = append(views, model.NewScheduleView(sc, counts[sc.ID]))
	}

	s.cfg.Log.Debug("Schedules listed", "country", code, "count", len(views))
	return views, nil
}

func (s *scheduleService) sanitize(sc *model.Schedule) {
	sc.ClassName = sanitizer.ClassName(sc.ClassName)
	if code, ok := locale.ParseCountry(sc.Country); ok {
		sc.Country = code
	}
	sc.StartTime = sc.StartTime.UTC()
	sc.EndTime = sc.EndTime.UTC()
}
