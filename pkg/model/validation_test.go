package model

import (
	"errors"
	"testing"
	"time"
)

func TestUserPackage_DebitCredit(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		debit     int
		wantErr   error
		wantAfter int
	}{
		{name: "exact balance", start: 5, debit: 5, wantAfter: 0},
		{name: "partial", start: 10, debit: 3, wantAfter: 7},
		{name: "insufficient", start: 2, debit: 3, wantErr: ErrInsufficientCredits, wantAfter: 2},
		{name: "zero cost", start: 0, debit: 0, wantAfter: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &UserPackage{RemainingCredits: tt.start}
			err := up.Debit(tt.debit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Debit() error = %v, want %v", err, tt.wantErr)
			}
			if up.RemainingCredits != tt.wantAfter {
				t.Errorf("remaining = %d, want %d", up.RemainingCredits, tt.wantAfter)
			}
			if up.RemainingCredits < 0 {
				t.Errorf("balance went negative")
			}
		})
	}
}

func TestUserPackage_CreditIgnoresExpiry(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	up := &UserPackage{RemainingCredits: 1, ExpiryDate: now.Add(-time.Hour), Status: PackageExpired}

	if err := up.Credit(4); err != nil {
		t.Fatalf("Credit() error = %v", err)
	}
	if up.RemainingCredits != 5 {
		t.Errorf("remaining = %d, want 5", up.RemainingCredits)
	}
	if err := up.Credit(-1); err == nil {
		t.Errorf("expected negative credit to be rejected")
	}
}

func TestUserPackage_IsExpired(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		up   UserPackage
		want bool
	}{
		{"future expiry", UserPackage{ExpiryDate: now.Add(24 * time.Hour), Status: PackageActive}, false},
		{"expiry exactly now", UserPackage{ExpiryDate: now, Status: PackageActive}, false},
		{"past expiry", UserPackage{ExpiryDate: now.Add(-time.Second), Status: PackageActive}, true},
		{"marked expired", UserPackage{ExpiryDate: now.Add(time.Hour), Status: PackageExpired}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.up.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusBooked, StatusCanceled, true},
		{StatusBooked, StatusCheckedIn, true},
		{StatusWaitlist, StatusBooked, true},
		{StatusWaitlist, StatusCanceled, true},
		{StatusWaitlist, StatusCheckedIn, false},
		{StatusCanceled, StatusBooked, false},
		{StatusCheckedIn, StatusCanceled, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	if !StatusCanceled.IsTerminal() || !StatusCheckedIn.IsTerminal() || StatusBooked.IsTerminal() {
		t.Errorf("unexpected terminal statuses")
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"back to back", at(0), at(1), at(1), at(2), false},
		{"contained", at(0), at(3), at(1), at(2), true},
		{"partial", at(0), at(2), at(1), at(3), true},
		{"disjoint", at(0), at(1), at(2), at(3), false},
		{"identical", at(0), at(1), at(0), at(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Errorf("Overlaps() not symmetric")
			}
		})
	}
}

func TestSchedule_HasEndedAndView(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	s := &Schedule{TotalSlots: 3, StartTime: now.Add(-time.Hour), EndTime: now}

	if !s.HasEnded(now) {
		t.Errorf("class ending at now should count as ended")
	}
	if s.HasEnded(now.Add(-time.Minute)) {
		t.Errorf("class should still be running a minute earlier")
	}

	view := NewScheduleView(s, 5)
	if view.AvailableSlots != 0 {
		t.Errorf("available slots should clamp at zero, got %d", view.AvailableSlots)
	}
	if NewScheduleView(s, 1).AvailableSlots != 2 {
		t.Errorf("expected 2 available slots")
	}
}
