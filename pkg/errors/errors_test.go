package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("insufficient credits")

	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		retryable  bool
	}{
		{"not found", NotFoundWithID("Booking", "b1"), CodeNotFound, http.StatusNotFound, false},
		{"business rule", BusinessRule("Insufficient credits", cause), CodeBusinessRule, http.StatusUnprocessableEntity, false},
		{"contention", Contention("Class is busy"), CodeContention, http.StatusConflict, true},
		{"upstream", Upstream("Lock store unavailable", cause), CodeUpstream, http.StatusBadGateway, false},
		{"invalid input", InvalidInput("bad id"), CodeInvalidInput, http.StatusBadRequest, false},
		{"validation", Validation("bad body", nil), CodeValidation, http.StatusUnprocessableEntity, false},
		{"internal", Internal("boom", cause), CodeInternal, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
			if tt.err.Retryable() != tt.retryable {
				t.Errorf("retryable = %v, want %v", tt.err.Retryable(), tt.retryable)
			}
			if IsRetryable(tt.err) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(tt.err), tt.retryable)
			}
		})
	}
}

func TestBusinessRule_KeepsCause(t *testing.T) {
	sentinel := errors.New("package expired")
	err := BusinessRule("Package expired", sentinel)

	if !errors.Is(err, sentinel) {
		t.Errorf("errors.Is should reach the domain sentinel")
	}
	if got := err.Error(); got != "BUSINESS_RULE_VIOLATION: Package expired (caused by: package expired)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAsAppError_Wrapped(t *testing.T) {
	appErr := Contention("busy")
	wrapped := fmt.Errorf("promote: %w", appErr)

	if !IsAppError(wrapped) {
		t.Fatalf("IsAppError() should see through wrapping")
	}
	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should return the wrapped AppError")
	}
	if !HasCode(wrapped, CodeContention) {
		t.Errorf("HasCode() should match wrapped code")
	}
	if !IsRetryable(wrapped) {
		t.Errorf("IsRetryable() should see through wrapping")
	}
}

func TestAsAppError_PlainError(t *testing.T) {
	plain := errors.New("mongo: connection reset")
	result := AsAppError(plain)

	if result.Code != CodeInternal {
		t.Errorf("expected internal code, got %s", result.Code)
	}
	if result.Err != plain {
		t.Errorf("expected original error to be kept")
	}
	if HasCode(plain, CodeInternal) {
		t.Errorf("HasCode() must be false for non AppError values")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := NotFound("Schedule").WithDetails(map[string]any{"id": "s1"})

	var decoded ErrorResponse
	if jsonErr := json.Unmarshal(err.ToJSON(), &decoded); jsonErr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jsonErr)
	}
	if decoded.Message != "Schedule not found" {
		t.Errorf("unexpected message %q", decoded.Message)
	}
	if decoded.Details["id"] != "s1" {
		t.Errorf("expected details id s1, got %v", decoded.Details["id"])
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantCode       string
		wantRetryAfter string
	}{
		{"contention sets Retry-After", Contention("Class is busy"), http.StatusConflict, CodeContention, RetryAfterSeconds},
		{"business rule", BusinessRule("Overlap", nil), http.StatusUnprocessableEntity, CodeBusinessRule, ""},
		{"plain error hides cause", errors.New("E11000 duplicate key"), http.StatusInternalServerError, CodeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() returned %v", err)
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.wantRetryAfter)
			}
			if strings.Contains(rec.Body.String(), "E11000") {
				t.Errorf("storage error leaked into response: %s", rec.Body.String())
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
		})
	}
}
