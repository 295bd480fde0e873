package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer guards a buffer shared with the async worker goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()

	out := &lockedBuffer{}
	h := NewAsyncHandler(slog.NewJSONHandler(out, nil), AsyncOptions{BufferSize: 16})
	logger := slog.New(h)

	for range 5 {
		logger.Info("queued")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	if got := strings.Count(out.String(), "queued"); got != 5 {
		t.Errorf("flushed %d records, want 5", got)
	}
	if err := h.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
}

func TestAsyncHandler_DropsAfterShutdown(t *testing.T) {
	t.Parallel()

	h := NewAsyncHandler(slog.NewJSONHandler(&lockedBuffer{}, nil), AsyncOptions{})
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	slog.New(h).Info("late")

	if h.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", h.Dropped())
	}
}

func TestAsyncHandler_NilSafe(t *testing.T) {
	t.Parallel()

	var h *AsyncHandler
	if err := h.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() = %v", err)
	}
	if h.Dropped() != 0 {
		t.Errorf("nil Dropped() = %d", h.Dropped())
	}
}
