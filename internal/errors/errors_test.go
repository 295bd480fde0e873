package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrNotFound is recognized",
			err:      ErrNotFound,
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Wrapped ErrNotFound is recognized",
			err:      fmt.Errorf("school year sy-1: %w", ErrNotFound),
			checkFn:  IsNotFound,
			expected: true,
		},
		{
			name:     "Different error is not ErrNotFound",
			err:      ErrRateLimitExceeded,
			checkFn:  IsNotFound,
			expected: false,
		},
		{
			name:     "ErrRateLimitExceeded is recognized",
			err:      ErrRateLimitExceeded,
			checkFn:  IsRateLimitExceeded,
			expected: true,
		},
		{
			name:     "ValidationError matches ErrInvalidInput",
			err:      NewValidationError("periodsPerYear", "must be positive"),
			checkFn:  IsInvalidInput,
			expected: true,
		},
		{
			name:     "ValidationErrors matches ErrInvalidInput",
			err:      ValidationErrors{NewValidationError("dayOfWeek", "out of range")},
			checkFn:  IsInvalidInput,
			expected: true,
		},
		{
			name:     "ErrUnavailable is recognized",
			err:      fmt.Errorf("appreciation: %w", ErrUnavailable),
			checkFn:  IsUnavailable,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.checkFn(tt.err)
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("email", "invalid format")

	if err.Field != "email" {
		t.Errorf("expected field 'email', got '%s'", err.Field)
	}

	if err.Message != "invalid format" {
		t.Errorf("expected message 'invalid format', got '%s'", err.Message)
	}

	expected := "validation failed on email: invalid format"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var list ValidationErrors
	if list.OrNil() != nil {
		t.Fatal("empty list should convert to nil error")
	}

	list.Add("templates[0].dayOfWeek", "must be between 1 and 7")
	list.Add("templates[1].classId", "is required")

	err := list.OrNil()
	if err == nil {
		t.Fatal("expected non-nil error")
	}

	expected := "validation failed: templates[0].dayOfWeek: must be between 1 and 7; templates[1].classId: is required"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	wrapped := fmt.Errorf("generate: %w", err)
	details := AsValidation(wrapped)
	if len(details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(details))
	}
	if details[1].Field != "templates[1].classId" {
		t.Errorf("unexpected field %q", details[1].Field)
	}
}

func TestAsValidation(t *testing.T) {
	single := fmt.Errorf("wrap: %w", NewValidationError("name", "is required"))
	if got := AsValidation(single); len(got) != 1 || got[0].Field != "name" {
		t.Errorf("AsValidation(single) = %v", got)
	}

	if got := AsValidation(errors.New("plain")); got != nil {
		t.Errorf("AsValidation(plain) = %v, want nil", got)
	}
}
