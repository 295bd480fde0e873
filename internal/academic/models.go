// Package academic splits school years into academic periods (trimesters,
// semesters...) and answers read-only questions about the result.
package academic

import (
	"time"

	"github.com/garyellow/classroom-planner/internal/dateutil"
)

// Period models.
const (
	ModelTrimester = "trimester"
	ModelSemester  = "semester"
	ModelQuarter   = "quarter"
	ModelCustom    = "custom"
)

// SchoolYear is the date range periods are cut from. StartDate and EndDate
// are both inclusive.
type SchoolYear struct {
	ID        string
	TeacherID string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
}

// TotalDays is the whole number of days from start to end.
func (y SchoolYear) TotalDays() int {
	return dateutil.DaysBetween(y.StartDate, y.EndDate)
}

// Structure defines how many periods a year has and what they are called.
// PeriodNames is keyed by 1-based order.
type Structure struct {
	ID             string
	TeacherID      string
	Name           string
	PeriodModel    string
	PeriodsPerYear int
	PeriodNames    map[int]string
}

// Period is one generated slice of a school year.
// IsActive is computed once at generation time.
type Period struct {
	ID           string
	SchoolYearID string
	TeacherID    string
	Name         string
	Order        int
	StartDate    time.Time
	EndDate      time.Time
	IsActive     bool
}

// Contains reports whether date falls in [StartDate, EndDate].
func (p Period) Contains(date time.Time) bool {
	return dateutil.Between(date, p.StartDate, p.EndDate)
}

// Days is the inclusive length of the period.
func (p Period) Days() int {
	return dateutil.DaysBetween(p.StartDate, p.EndDate) + 1
}

// CustomDates pins one period to explicit dates. Name is optional.
type CustomDates struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// GenerateOptions groups the inputs shared by both generators.
type GenerateOptions struct {
	SchoolYear SchoolYear
	Structure  Structure
	TeacherID  string
}

// ValidationResult is a user-facing report of every structure problem.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// PeriodInfo describes one period inside Stats.
type PeriodInfo struct {
	Order      int       `json:"order"`
	Name       string    `json:"name"`
	StartDate  time.Time `json:"-"`
	EndDate    time.Time `json:"-"`
	Days       int       `json:"days"`
	Percentage int       `json:"percentage"`
}

// Stats summarizes how a structure divides a school year.
type Stats struct {
	TotalDays            int          `json:"totalDays"`
	AverageDaysPerPeriod int          `json:"averageDaysPerPeriod"`
	PeriodsInfo          []PeriodInfo `json:"periodsInfo"`
}
