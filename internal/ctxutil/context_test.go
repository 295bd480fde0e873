package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestTeacherIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if teacherID := GetTeacherID(context.Background()); teacherID != "" {
			t.Errorf("Expected empty string, got %s", teacherID)
		}
	})

	t.Run("with teacher ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithTeacherID(context.Background(), "teacher-42")
		if got := GetTeacherID(ctx); got != "teacher-42" {
			t.Errorf("Expected teacherID %s, got %s", "teacher-42", got)
		}
		if got := MustGetTeacherID(ctx); got != "teacher-42" {
			t.Errorf("MustGetTeacherID = %s, want %s", got, "teacher-42")
		}
	})
}

func TestMustGetTeacherID_Panic(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustGetTeacherID to panic on empty context")
		}
	}()
	_ = MustGetTeacherID(context.Background())
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected no request ID in empty context")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	requestID, ok := GetRequestID(ctx)
	if !ok || requestID != "req-1" {
		t.Errorf("GetRequestID = (%q, %v), want (%q, true)", requestID, ok, "req-1")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithTeacherID(parent, "teacher-1")
	parent = WithRequestID(parent, "req-9")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("Detached context should not be canceled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("Detached context should not carry a deadline")
	}
	if got := GetTeacherID(detached); got != "teacher-1" {
		t.Errorf("teacherID = %q, want %q", got, "teacher-1")
	}
	if got, _ := GetRequestID(detached); got != "req-9" {
		t.Errorf("requestID = %q, want %q", got, "req-9")
	}
}
