package storage

import (
	"context"
	"time"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

// Every lookup is scoped to a teacher: a row owned by another teacher is
// reported as errors.ErrNotFound.

// SchoolYearRepository stores school years.
type SchoolYearRepository interface {
	SaveSchoolYear(ctx context.Context, year *academic.SchoolYear) error
	GetSchoolYear(ctx context.Context, teacherID, id string) (*academic.SchoolYear, error)
	ListSchoolYears(ctx context.Context, teacherID string) ([]academic.SchoolYear, error)
}

// StructureRepository stores academic structures.
type StructureRepository interface {
	SaveStructure(ctx context.Context, structure *academic.Structure) error
	GetStructure(ctx context.Context, teacherID, id string) (*academic.Structure, error)
	ListStructures(ctx context.Context, teacherID string) ([]academic.Structure, error)
}

// PeriodRepository stores the generated periods of a school year.
type PeriodRepository interface {
	// ReplacePeriods atomically swaps every period of the school year.
	ReplacePeriods(ctx context.Context, teacherID, schoolYearID string, periods []academic.Period) error
	// ListPeriods returns the periods ordered by Order.
	ListPeriods(ctx context.Context, teacherID, schoolYearID string) ([]academic.Period, error)
}

// TemplateRepository stores weekly templates.
type TemplateRepository interface {
	SaveTemplate(ctx context.Context, template *schedule.Template) error
	GetTemplate(ctx context.Context, teacherID, id string) (*schedule.Template, error)
	ListTemplates(ctx context.Context, teacherID string, activeOnly bool) ([]schedule.Template, error)
	DeleteTemplate(ctx context.Context, teacherID, id string) error
}

// ExceptionRepository stores schedule exceptions.
type ExceptionRepository interface {
	// SaveExceptions stores all exceptions in one transaction.
	SaveExceptions(ctx context.Context, teacherID string, exceptions ...schedule.Exception) error
	GetException(ctx context.Context, teacherID, id string) (*schedule.Exception, error)
	// ListExceptions returns exceptions dated within [from, to].
	ListExceptions(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Exception, error)
	DeleteException(ctx context.Context, teacherID, id string) error
}

// SessionRepository stores materialized sessions.
type SessionRepository interface {
	// ReplaceSessionsInRange atomically deletes the teacher's sessions dated
	// within [from, to] and inserts sessions.
	ReplaceSessionsInRange(ctx context.Context, teacherID string, from, to time.Time, sessions []schedule.Session) error
	// ListSessions returns sessions dated within [from, to], ordered by date.
	ListSessions(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Session, error)
}

// HealthRepository backs the readiness probe.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// Repository combines every repository interface.
type Repository interface {
	SchoolYearRepository
	StructureRepository
	PeriodRepository
	TemplateRepository
	ExceptionRepository
	SessionRepository
	HealthRepository
	Close() error
}

var (
	_ Repository = (*DB)(nil)
	_ Repository = (*Memory)(nil)
)
