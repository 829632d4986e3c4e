package validator

import (
	"errors"
	"strings"
	"testing"
	"time"

	"classbook/pkg/logger"
	"classbook/pkg/model"
)

func validSchedule() *model.Schedule {
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	return &model.Schedule{
		ClassName:       "Vinyasa",
		Country:         "SG",
		RequiredCredits: 2,
		TotalSlots:      12,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
	}
}

func TestValidate(t *testing.T) {
	v := NewScheduleValidator(logger.Discard())

	tests := []struct {
		name      string
		mutate    func(sc *model.Schedule)
		wantField string
	}{
		{name: "valid", mutate: func(sc *model.Schedule) {}},
		{name: "unknown country", mutate: func(sc *model.Schedule) { sc.Country = "FR" }, wantField: "Country"},
		{name: "iso alpha-3 country", mutate: func(sc *model.Schedule) { sc.Country = "USA" }, wantField: "Country"},
		{name: "iso numeric country", mutate: func(sc *model.Schedule) { sc.Country = "840" }, wantField: "Country"},
		{name: "lowercase country", mutate: func(sc *model.Schedule) { sc.Country = "sg" }, wantField: "Country"},
		{name: "zero slots", mutate: func(sc *model.Schedule) { sc.TotalSlots = 0 }, wantField: "TotalSlots"},
		{name: "zero credits", mutate: func(sc *model.Schedule) { sc.RequiredCredits = 0 }, wantField: "RequiredCredits"},
		{name: "short name", mutate: func(sc *model.Schedule) { sc.ClassName = "Y" }, wantField: "ClassName"},
		{name: "end before start", mutate: func(sc *model.Schedule) { sc.EndTime = sc.StartTime.Add(-time.Minute) }, wantField: "EndTime"},
		{name: "end equals start", mutate: func(sc *model.Schedule) { sc.EndTime = sc.StartTime }, wantField: "EndTime"},
		{name: "too long", mutate: func(sc *model.Schedule) { sc.EndTime = sc.StartTime.Add(13 * time.Hour) }, wantField: "EndTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := validSchedule()
			tt.mutate(sc)

			err := v.Validate(sc)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() error = %v, want ValidationErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.wantField, verrs)
			}
			if tt.wantField == "Country" && !strings.Contains(err.Error(), "SG") {
				t.Errorf("country message should list supported codes: %v", err)
			}
		})
	}
}
