package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/classroom-planner/internal/ctxutil"
)

// ContextHandler stamps every record with the teacher and request IDs found
// in its context. Call sites only need the slog.*Context variants.
type ContextHandler struct {
	next slog.Handler
}

func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(tracingAttrs(ctx)...)
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}

func tracingAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := ctxutil.GetTeacherID(ctx); id != "" {
		attrs = append(attrs, slog.String("teacher_id", id))
	}
	if id, ok := ctxutil.GetRequestID(ctx); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	return attrs
}
