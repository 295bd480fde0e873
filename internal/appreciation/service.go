package appreciation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/metrics"
	"github.com/garyellow/classroom-planner/internal/ratelimit"
)

// Service validates, rate-limits and times appreciation requests per teacher.
type Service struct {
	generator Generator
	limiter   *ratelimit.KeyedLimiter
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// NewService wires a Service. generator may be nil, in which case every call
// fails with ErrUnavailable. limiter may be nil (no limit).
func NewService(generator Generator, limiter *ratelimit.KeyedLimiter, m *metrics.Metrics, timeout time.Duration) *Service {
	return &Service{generator: generator, limiter: limiter, metrics: m, timeout: timeout}
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.generator != nil
}

// RetryAfter returns how long teacherID must wait before the next request.
func (s *Service) RetryAfter(teacherID string) time.Duration {
	if s == nil || s.limiter == nil {
		return 0
	}
	return s.limiter.RetryAfter(teacherID)
}

// Generate drafts one appreciation for teacherID.
func (s *Service) Generate(ctx context.Context, teacherID string, req Request) (*Result, error) {
	wrapper := domerrors.NewWrapper("appreciation", "generate")
	if !s.Enabled() {
		return nil, wrapper.Wrap(domerrors.ErrUnavailable, "La génération d'appréciations n'est pas configurée")
	}
	if err := Validate(req); err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(teacherID) {
		return nil, wrapper.Wrap(
			fmt.Errorf("%w: retry in %s", domerrors.ErrRateLimitExceeded, s.limiter.RetryAfter(teacherID).Round(time.Second)),
			"Trop de demandes, réessayez plus tard")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domerrors.ErrTimeout, err)
		}
		slog.ErrorContext(ctx, "appreciation generation failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, wrapper.Wrap(err, "La génération de l'appréciation a échoué")
	}
	s.metrics.RecordGeneration("appreciation", "appreciation", 1, time.Since(start))
	return result, nil
}
