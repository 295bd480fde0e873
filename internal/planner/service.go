// Package planner orchestrates period planning and session generation over
// the storage repositories.
package planner

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/classroom-planner/internal/metrics"
	"github.com/garyellow/classroom-planner/internal/schedule"
	"github.com/garyellow/classroom-planner/internal/storage"
)

// Exporter publishes a materialized school year. It returns the object key.
type Exporter interface {
	ExportSchedule(ctx context.Context, teacherID, schoolYearID string, sessions []schedule.Session) (string, error)
}

// Service is safe for concurrent use.
type Service struct {
	repo     storage.Repository
	metrics  *metrics.Metrics
	exporter Exporter
	now      func() time.Time
	newID    func() string

	materialize singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. It decides "today" and the session stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithExporter uploads every materialized school year.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithIDGenerator replaces the random entity IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// New builds a Service. m may be nil.
func New(repo storage.Repository, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
		newID:   newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping backs the readiness probe.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
