package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

func newUUID() string {
	return uuid.NewString()
}

// SchoolYearInput creates a school year.
type SchoolYearInput struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	IsActive  bool      `json:"isActive"`
}

// StructureInput creates a structure. PeriodNames may be partial: missing
// names come from the preset of PeriodModel, then from the default
// "Période N".
type StructureInput struct {
	ID             string         `json:"id,omitempty"`
	Name           string         `json:"name" validate:"required,max=100"`
	PeriodModel    string         `json:"periodModel" validate:"required,oneof=trimester semester quarter custom"`
	PeriodsPerYear int            `json:"periodsPerYear" validate:"min=1,max=12"`
	PeriodNames    map[int]string `json:"periodNames,omitempty" validate:"dive,max=100"`
}

// CurrentPeriod locates a date within the planned periods.
type CurrentPeriod struct {
	Date     time.Time
	Active   *academic.Period
	Next     *academic.Period
	Previous *academic.Period
	// Progress is the elapsed percentage of Active, in [0, 100].
	Progress float64
}

// MoveInput relocates one occurrence of a template.
type MoveInput struct {
	TemplateID    string
	OriginalDate  time.Time
	NewDate       time.Time
	NewTimeSlotID string
	NewRoom       string
	Reason        string
}

// AddInput creates an extra session.
type AddInput struct {
	TemplateID string
	Date       time.Time
	TimeSlotID string
	Room       string
	Data       schedule.SessionData
}

// MaterializeResult summarizes a stored school year.
type MaterializeResult struct {
	SchoolYearID string
	Count        int
	From, To     time.Time
	// ExportKey is set when an exporter is configured and the upload succeeded.
	ExportKey string
}
