package model

import "time"

type Schedule struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ClassName       string    `json:"class_name" bson:"class_name" validate:"required,min=2,max=100"`
	Country         string    `json:"country" bson:"country" validate:"required,supported_country"`
	RequiredCredits int       `json:"required_credits" bson:"required_credits" validate:"required,min=1,max=100"`
	TotalSlots      int       `json:"total_slots" bson:"total_slots" validate:"required,min=1,max=500"`
	StartTime       time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// HasEnded reports whether the class is over at now. A class ending exactly
// at now counts as ended.
func (s *Schedule) HasEnded(now time.Time) bool {
	return !s.EndTime.After(now)
}

// Overlaps uses half-open intervals: a class ending at 10:00 does not
// overlap one starting at 10:00.
func (s *Schedule) Overlaps(other *Schedule) bool {
	return Overlaps(s.StartTime, s.EndTime, other.StartTime, other.EndTime)
}

func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ScheduleView is a schedule as listed to users, with the seat count derived
// from BOOKED bookings at read time.
type ScheduleView struct {
	*Schedule
	BookedCount    int64 `json:"booked_count"`
	AvailableSlots int64 `json:"available_slots"`
}

func NewScheduleView(s *Schedule, booked int64) *ScheduleView {
	return &ScheduleView{
		Schedule:       s,
		BookedCount:    booked,
		AvailableSlots: max(int64(s.TotalSlots)-booked, 0),
	}
}
