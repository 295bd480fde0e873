package academic

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
)

// MinDaysPerPeriod is the shortest period a structure may produce.
const MinDaysPerPeriod = 7

// periodNamespace seeds the deterministic period IDs.
var periodNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("classroom-planner/academic-period"))

// PeriodID derives the stable ID of the period at order in a school year.
func PeriodID(schoolYearID string, order int) string {
	return uuid.NewSHA1(periodNamespace, []byte(schoolYearID+"|"+strconv.Itoa(order))).String()
}

// DefaultPeriodName is used when a structure has no name for order.
func DefaultPeriodName(order int) string {
	return fmt.Sprintf("Période %d", order)
}

// periodName resolves the display name of order.
func (s Structure) periodName(order int) string {
	if name := s.PeriodNames[order]; name != "" {
		return name
	}
	return DefaultPeriodName(order)
}

type span struct {
	start, end time.Time
}

// split cuts [start, end] into n contiguous spans. The first totalDays%n spans
// get one extra day and the last span always ends on end.
func split(start, end time.Time, n int) []span {
	totalDays := dateutil.DaysBetween(start, end)
	base := totalDays / n
	remainder := totalDays % n

	spans := make([]span, 0, n)
	cursor := dateutil.Truncate(start)
	for i := range n {
		days := base
		if i < remainder {
			days++
		}
		periodEnd := dateutil.AddDays(cursor, days-1)
		if i == n-1 {
			periodEnd = dateutil.Truncate(end)
		}
		spans = append(spans, span{start: cursor, end: periodEnd})
		cursor = dateutil.AddDays(periodEnd, 1)
	}
	return spans
}

// GeneratePeriods splits the school year into structure.PeriodsPerYear
// contiguous periods. now decides which period is flagged active.
func GeneratePeriods(year SchoolYear, structure Structure, teacherID string, now time.Time) ([]Period, error) {
	n := structure.PeriodsPerYear
	if n <= 0 {
		return nil, errors.NewValidationError("periodsPerYear", fmt.Sprintf("must be positive, got %d", n))
	}
	// Each period needs at least one day of its own.
	if days := dateutil.DaysBetween(year.StartDate, year.EndDate) + 1; n > days {
		return nil, errors.NewValidationError("periodsPerYear",
			fmt.Sprintf("%d periods do not fit in a %d-day school year", n, days))
	}

	today := dateutil.Truncate(now)
	spans := split(year.StartDate, year.EndDate, n)
	periods := make([]Period, 0, n)
	for i, s := range spans {
		order := i + 1
		p := Period{
			ID:           PeriodID(year.ID, order),
			SchoolYearID: year.ID,
			TeacherID:    teacherID,
			Name:         structure.periodName(order),
			Order:        order,
			StartDate:    s.start,
			EndDate:      s.end,
		}
		p.IsActive = p.Contains(today)
		periods = append(periods, p)
	}
	return periods, nil
}

// GeneratePeriodsWithCustomDates builds one period per entry of dates, in
// order. Dates are taken as given: contiguity and year bounds are the
// caller's concern.
func GeneratePeriodsWithCustomDates(opts GenerateOptions, dates []CustomDates, now time.Time) ([]Period, error) {
	if len(dates) == 0 {
		return nil, errors.NewValidationError("customDates", "at least one period is required")
	}

	today := dateutil.Truncate(now)
	periods := make([]Period, 0, len(dates))
	for i, d := range dates {
		order := i + 1
		name := d.Name
		if name == "" {
			name = opts.Structure.periodName(order)
		}
		p := Period{
			ID:           PeriodID(opts.SchoolYear.ID, order),
			SchoolYearID: opts.SchoolYear.ID,
			TeacherID:    opts.TeacherID,
			Name:         name,
			Order:        order,
			StartDate:    dateutil.Truncate(d.StartDate),
			EndDate:      dateutil.Truncate(d.EndDate),
		}
		p.IsActive = p.Contains(today)
		periods = append(periods, p)
	}
	return periods, nil
}

// ValidateStructureForSchoolYear reports every reason the structure cannot
// divide the year. Messages are shown to teachers as is.
func ValidateStructureForSchoolYear(structure Structure, year SchoolYear) ValidationResult {
	errs := make([]string, 0)
	n := structure.PeriodsPerYear

	if n <= 0 {
		errs = append(errs, "Le nombre de périodes doit être supérieur à zéro")
	}

	totalDays := year.TotalDays()
	if n > 0 && totalDays < n*MinDaysPerPeriod {
		errs = append(errs, fmt.Sprintf(
			"L'année scolaire est trop courte : %d jours pour %d périodes (minimum %d jours par période)",
			totalDays, n, MinDaysPerPeriod))
	}

	for order := 1; order <= n; order++ {
		if structure.PeriodNames[order] == "" {
			errs = append(errs, fmt.Sprintf("Le nom de la période %d est manquant", order))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// CalculateStructureStats runs the same split as GeneratePeriods and reports
// each period's length and share of the year.
func CalculateStructureStats(structure Structure, year SchoolYear) (Stats, error) {
	n := structure.PeriodsPerYear
	if n <= 0 {
		return Stats{}, errors.NewValidationError("periodsPerYear", fmt.Sprintf("must be positive, got %d", n))
	}

	totalDays := year.TotalDays()
	stats := Stats{
		TotalDays:            totalDays,
		AverageDaysPerPeriod: int(math.Round(float64(totalDays) / float64(n))),
		PeriodsInfo:          make([]PeriodInfo, 0, n),
	}

	for i, s := range split(year.StartDate, year.EndDate, n) {
		order := i + 1
		days := dateutil.DaysBetween(s.start, s.end) + 1
		percentage := 0
		if totalDays > 0 {
			percentage = int(math.Round(float64(days) / float64(totalDays) * 100))
		}
		stats.PeriodsInfo = append(stats.PeriodsInfo, PeriodInfo{
			Order:      order,
			Name:       structure.periodName(order),
			StartDate:  s.start,
			EndDate:    s.end,
			Days:       days,
			Percentage: percentage,
		})
	}
	return stats, nil
}

// FindActivePeriod returns the first period containing date.
func FindActivePeriod(periods []Period, date time.Time) (Period, bool) {
	for _, p := range periods {
		if p.Contains(date) {
			return p, true
		}
	}
	return Period{}, false
}

// GetNextPeriod returns the lowest-order period starting after date.
func GetNextPeriod(periods []Period, date time.Time) (Period, bool) {
	day := dateutil.Truncate(date)
	for _, p := range sortedByOrder(periods, false) {
		if p.StartDate.After(day) {
			return p, true
		}
	}
	return Period{}, false
}

// GetPreviousPeriod returns the highest-order period that ended before date.
func GetPreviousPeriod(periods []Period, date time.Time) (Period, bool) {
	day := dateutil.Truncate(date)
	for _, p := range sortedByOrder(periods, true) {
		if p.EndDate.Before(day) {
			return p, true
		}
	}
	return Period{}, false
}

func sortedByOrder(periods []Period, desc bool) []Period {
	sorted := slices.Clone(periods)
	slices.SortStableFunc(sorted, func(a, b Period) int {
		if desc {
			return cmp.Compare(b.Order, a.Order)
		}
		return cmp.Compare(a.Order, b.Order)
	})
	return sorted
}

// ProgressInPeriod returns how much of the period has elapsed on date, as a
// percentage clamped to [0, 100]. The current day counts as elapsed.
func ProgressInPeriod(p Period, date time.Time) float64 {
	total := p.Days()
	if total <= 0 {
		return 0
	}
	elapsed := dateutil.DaysBetween(p.StartDate, date) + 1
	pct := float64(elapsed) / float64(total) * 100
	return math.Max(0, math.Min(100, pct))
}
