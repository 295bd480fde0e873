package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	wrapper := NewWrapper("planner", "plan_periods")

	t.Run("Wrap returns nil for nil error", func(t *testing.T) {
		result := wrapper.Wrap(nil, "Impossible de générer les périodes")
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("Wrap creates WrappedError", func(t *testing.T) {
		baseErr := errors.New("database connection failed")
		wrapped := wrapper.Wrap(baseErr, "Impossible de générer les périodes")

		if wrapped == nil {
			t.Fatal("expected non-nil wrapped error")
		}

		wrappedErr, ok := wrapped.(*WrappedError)
		if !ok {
			t.Fatal("expected WrappedError type")
		}

		if wrappedErr.Module != "planner" {
			t.Errorf("expected module 'planner', got '%s'", wrappedErr.Module)
		}

		if wrappedErr.Operation != "plan_periods" {
			t.Errorf("expected operation 'plan_periods', got '%s'", wrappedErr.Operation)
		}

		if !errors.Is(wrapped, baseErr) {
			t.Error("wrapped error should unwrap to base error")
		}

		expected := "[planner:plan_periods] Impossible de générer les périodes: database connection failed"
		if wrapped.Error() != expected {
			t.Errorf("expected %q, got %q", expected, wrapped.Error())
		}
	})

	t.Run("Wrapf formats message", func(t *testing.T) {
		wrapped := wrapper.Wrapf(ErrNotFound, "Année scolaire introuvable : %s", "sy-2024")

		wrappedErr := wrapped.(*WrappedError)
		expected := "Année scolaire introuvable : sy-2024"
		if wrappedErr.UserMessage != expected {
			t.Errorf("expected '%s', got '%s'", expected, wrappedErr.UserMessage)
		}
		if !IsNotFound(wrapped) {
			t.Error("wrapped ErrNotFound should still match IsNotFound")
		}
	})
}

func TestGetUserMessage(t *testing.T) {
	t.Run("returns empty string for nil", func(t *testing.T) {
		if result := GetUserMessage(nil); result != "" {
			t.Errorf("expected empty string, got '%s'", result)
		}
	})

	t.Run("returns user message from nested WrappedError", func(t *testing.T) {
		wrapped := &WrappedError{
			Operation:   "test",
			Module:      "test",
			Cause:       errors.New("base error"),
			UserMessage: "user friendly message",
		}

		result := GetUserMessage(fmt.Errorf("outer: %w", wrapped))
		if result != "user friendly message" {
			t.Errorf("expected 'user friendly message', got '%s'", result)
		}
	})

	t.Run("returns error string for plain error", func(t *testing.T) {
		if result := GetUserMessage(errors.New("plain")); result != "plain" {
			t.Errorf("expected 'plain', got '%s'", result)
		}
	})
}

func TestUserMessage_SkipsEmptyMessage(t *testing.T) {
	if _, ok := UserMessage(NewWrapper("planner", "ping").Wrap(ErrTimeout, "")); ok {
		t.Error("an empty user message should not be reported")
	}
	if _, ok := UserMessage(ErrNotFound); ok {
		t.Error("plain sentinel carries no user message")
	}
	msg, ok := UserMessage(fmt.Errorf("handler: %w", NewWrapper("planner", "get_school_year").Wrap(ErrNotFound, "Année scolaire introuvable")))
	if !ok || msg != "Année scolaire introuvable" {
		t.Errorf("got %q, %v", msg, ok)
	}
}
