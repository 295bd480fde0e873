package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
)

var d = dateutil.MustParseDate

func schoolYear2024() SchoolYear {
	return SchoolYear{ID: "sy-2024", StartDate: d("2024-09-02"), EndDate: d("2025-06-30")}
}

func trimesters() Structure {
	return Structure{
		PeriodModel:    ModelTrimester,
		PeriodsPerYear: 3,
		PeriodNames:    map[int]string{1: "T1", 2: "T2", 3: "T3"},
	}
}

func TestGeneratePeriods_Trimesters(t *testing.T) {
	t.Parallel()

	periods, err := GeneratePeriods(schoolYear2024(), trimesters(), "teacher-1", d("2025-01-15"))
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "2024-09-02", dateutil.FormatDate(periods[0].StartDate))
	assert.Equal(t, "2024-12-11", dateutil.FormatDate(periods[0].EndDate))
	assert.Equal(t, "2024-12-12", dateutil.FormatDate(periods[1].StartDate))
	assert.Equal(t, "2025-03-21", dateutil.FormatDate(periods[1].EndDate))
	assert.Equal(t, "2025-03-22", dateutil.FormatDate(periods[2].StartDate))
	assert.Equal(t, "2025-06-30", dateutil.FormatDate(periods[2].EndDate))

	assert.Equal(t, []int{101, 100, 101}, []int{periods[0].Days(), periods[1].Days(), periods[2].Days()})
	assert.Equal(t, []bool{false, true, false}, []bool{periods[0].IsActive, periods[1].IsActive, periods[2].IsActive})

	for i, p := range periods {
		assert.Equal(t, i+1, p.Order)
		assert.Equal(t, "sy-2024", p.SchoolYearID)
		assert.Equal(t, "teacher-1", p.TeacherID)
	}
	assert.Equal(t, "T2", periods[1].Name)
}

func TestGeneratePeriods_CoverageAndBalance(t *testing.T) {
	t.Parallel()

	years := []SchoolYear{
		schoolYear2024(),
		{ID: "short", StartDate: d("2024-01-01"), EndDate: d("2024-03-31")},
		{ID: "leap", StartDate: d("2023-09-04"), EndDate: d("2024-07-05")},
	}

	for _, year := range years {
		for n := 1; n <= 6; n++ {
			periods, err := GeneratePeriods(year, Structure{PeriodsPerYear: n}, "t", year.StartDate)
			require.NoError(t, err)
			require.Len(t, periods, n)

			assert.True(t, periods[0].StartDate.Equal(year.StartDate), "%s n=%d first start", year.ID, n)
			assert.True(t, periods[n-1].EndDate.Equal(year.EndDate), "%s n=%d last end", year.ID, n)

			minDays, maxDays := periods[0].Days(), periods[0].Days()
			for i := 1; i < n; i++ {
				assert.True(t, periods[i].StartDate.Equal(dateutil.AddDays(periods[i-1].EndDate, 1)),
					"%s n=%d period %d is not contiguous", year.ID, n, i+1)
				minDays = min(minDays, periods[i].Days())
				maxDays = max(maxDays, periods[i].Days())
			}
			assert.LessOrEqual(t, maxDays-minDays, 1, "%s n=%d", year.ID, n)
		}
	}
}

func TestGeneratePeriods_Idempotent(t *testing.T) {
	t.Parallel()

	now := d("2024-10-01")
	first, err := GeneratePeriods(schoolYear2024(), trimesters(), "t", now)
	require.NoError(t, err)
	second, err := GeneratePeriods(schoolYear2024(), trimesters(), "t", now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGeneratePeriods_InvalidCount(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -2} {
		_, err := GeneratePeriods(schoolYear2024(), Structure{PeriodsPerYear: n}, "t", time.Now())
		require.Error(t, err)
		assert.True(t, errors.IsInvalidInput(err))
	}
}

func TestGeneratePeriods_MorePeriodsThanDays(t *testing.T) {
	t.Parallel()

	week := SchoolYear{ID: "sy-short", StartDate: d("2024-09-02"), EndDate: d("2024-09-06")}

	periods, err := GeneratePeriods(week, Structure{PeriodsPerYear: 5}, "t", time.Now())
	require.NoError(t, err)
	require.Len(t, periods, 5)
	for _, p := range periods {
		assert.Equal(t, p.StartDate, p.EndDate, "one day per period")
	}

	_, err = GeneratePeriods(week, Structure{PeriodsPerYear: 6}, "t", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	assert.Equal(t, "periodsPerYear", errors.AsValidation(err)[0].Field)
}

func TestGeneratePeriods_DefaultNames(t *testing.T) {
	t.Parallel()

	periods, err := GeneratePeriods(schoolYear2024(), Structure{PeriodsPerYear: 2, PeriodNames: map[int]string{1: "S1"}}, "t", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "S1", periods[0].Name)
	assert.Equal(t, "Période 2", periods[1].Name)
}

func TestGeneratePeriods_ActiveOnBoundary(t *testing.T) {
	t.Parallel()

	// The end date belongs to its own period, not to the next one.
	periods, err := GeneratePeriods(schoolYear2024(), trimesters(), "t", d("2024-12-11"))
	require.NoError(t, err)
	assert.True(t, periods[0].IsActive)
	assert.False(t, periods[1].IsActive)
}

func TestGeneratePeriodsWithCustomDates(t *testing.T) {
	t.Parallel()

	opts := GenerateOptions{SchoolYear: schoolYear2024(), Structure: trimesters(), TeacherID: "t"}
	dates := []CustomDates{
		{StartDate: d("2024-09-02"), EndDate: d("2024-11-29")},
		{Name: "Hiver", StartDate: d("2024-12-02"), EndDate: d("2025-03-07")},
		{StartDate: d("2025-03-10"), EndDate: d("2025-06-30")},
	}

	periods, err := GeneratePeriodsWithCustomDates(opts, dates, d("2024-12-01"))
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "T1", periods[0].Name)
	assert.Equal(t, "Hiver", periods[1].Name)
	assert.Equal(t, "2024-11-29", dateutil.FormatDate(periods[0].EndDate))
	// A gap day is nobody's active period.
	for _, p := range periods {
		assert.False(t, p.IsActive)
	}

	_, err = GeneratePeriodsWithCustomDates(opts, nil, time.Now())
	assert.True(t, errors.IsInvalidInput(err))
}

func TestValidateStructureForSchoolYear(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		res := ValidateStructureForSchoolYear(trimesters(), schoolYear2024())
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Errors)
	})

	t.Run("year too short", func(t *testing.T) {
		t.Parallel()
		year := SchoolYear{StartDate: d("2024-09-02"), EndDate: d("2024-09-12")}
		structure := Structure{PeriodsPerYear: 5, PeriodNames: map[int]string{1: "a", 2: "b", 3: "c", 4: "d", 5: "e"}}

		res := ValidateStructureForSchoolYear(structure, year)
		assert.False(t, res.IsValid)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "10 jours")
		assert.Contains(t, res.Errors[0], "5 périodes")
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		year := SchoolYear{StartDate: d("2024-09-02"), EndDate: d("2024-09-12")}
		structure := Structure{PeriodsPerYear: 3, PeriodNames: map[int]string{2: "b"}}

		res := ValidateStructureForSchoolYear(structure, year)
		assert.False(t, res.IsValid)
		assert.Len(t, res.Errors, 3)
		assert.Contains(t, res.Errors[1], "période 1")
		assert.Contains(t, res.Errors[2], "période 3")
	})

	t.Run("non positive count", func(t *testing.T) {
		t.Parallel()
		res := ValidateStructureForSchoolYear(Structure{PeriodsPerYear: 0}, schoolYear2024())
		assert.False(t, res.IsValid)
		assert.Len(t, res.Errors, 1)
	})
}

func TestCalculateStructureStats(t *testing.T) {
	t.Parallel()

	stats, err := CalculateStructureStats(trimesters(), schoolYear2024())
	require.NoError(t, err)

	assert.Equal(t, 301, stats.TotalDays)
	assert.Equal(t, 100, stats.AverageDaysPerPeriod)
	require.Len(t, stats.PeriodsInfo, 3)

	assert.Equal(t, PeriodInfo{
		Order: 1, Name: "T1",
		StartDate: d("2024-09-02"), EndDate: d("2024-12-11"),
		Days: 101, Percentage: 34,
	}, stats.PeriodsInfo[0])
	assert.Equal(t, 100, stats.PeriodsInfo[1].Days)
	assert.Equal(t, 33, stats.PeriodsInfo[1].Percentage)

	_, err = CalculateStructureStats(Structure{}, schoolYear2024())
	assert.True(t, errors.IsInvalidInput(err))
}

func TestPeriodQueries(t *testing.T) {
	t.Parallel()

	periods, err := GeneratePeriods(schoolYear2024(), trimesters(), "t", d("2024-09-02"))
	require.NoError(t, err)
	// Queries must not depend on input order.
	shuffled := []Period{periods[2], periods[0], periods[1]}

	tests := []struct {
		name     string
		date     string
		active   int
		next     int
		previous int
	}{
		{"before year", "2024-08-15", 0, 1, 0},
		{"first day", "2024-09-02", 1, 2, 0},
		{"end of first", "2024-12-11", 1, 2, 0},
		{"start of second", "2024-12-12", 2, 3, 1},
		{"last day", "2025-06-30", 3, 0, 2},
		{"after year", "2025-07-14", 0, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			date := d(tt.date)

			active, ok := FindActivePeriod(shuffled, date)
			assert.Equal(t, tt.active != 0, ok)
			if ok {
				assert.Equal(t, tt.active, active.Order)
			}

			next, ok := GetNextPeriod(shuffled, date)
			assert.Equal(t, tt.next != 0, ok)
			if ok {
				assert.Equal(t, tt.next, next.Order)
			}

			prev, ok := GetPreviousPeriod(shuffled, date)
			assert.Equal(t, tt.previous != 0, ok)
			if ok {
				assert.Equal(t, tt.previous, prev.Order)
			}
		})
	}
}

func TestProgressInPeriod(t *testing.T) {
	t.Parallel()

	p := Period{StartDate: d("2024-09-02"), EndDate: d("2024-09-11")}
	assert.InDelta(t, 0, ProgressInPeriod(p, d("2024-08-01")), 0.001)
	assert.InDelta(t, 10, ProgressInPeriod(p, d("2024-09-02")), 0.001)
	assert.InDelta(t, 50, ProgressInPeriod(p, d("2024-09-06")), 0.001)
	assert.InDelta(t, 100, ProgressInPeriod(p, d("2024-09-11")), 0.001)
	assert.InDelta(t, 100, ProgressInPeriod(p, d("2025-01-01")), 0.001)
}

func TestPeriodID_Stable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PeriodID("sy", 1), PeriodID("sy", 1))
	assert.NotEqual(t, PeriodID("sy", 1), PeriodID("sy", 2))
	assert.NotEqual(t, PeriodID("sy", 1), PeriodID("other", 1))
}
