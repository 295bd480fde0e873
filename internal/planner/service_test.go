package planner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/schedule"
	"github.com/garyellow/classroom-planner/internal/storage"
)

const teacher = "teacher-1"

var (
	d     = dateutil.MustParseDate
	clock = func() time.Time { return time.Date(2024, 10, 15, 9, 30, 0, 0, time.UTC) }
)

// sequentialIDs returns "<prefix>-1", "<prefix>-2"...
func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

func newTestService(opts ...Option) (*Service, *storage.Memory) {
	repo := storage.NewMemory()
	opts = append([]Option{WithClock(clock), WithIDGenerator(sequentialIDs("id"))}, opts...)
	return New(repo, nil, opts...), repo
}

func createYear(svc *Service) (*academic.SchoolYear, error) {
	return svc.CreateSchoolYear(context.Background(), teacher, SchoolYearInput{
		ID:        "year-2024",
		Name:      "2024-2025",
		StartDate: d("2024-09-02"),
		EndDate:   d("2025-06-30"),
		IsActive:  true,
	})
}

func weeklyTemplate(id string, day int) schedule.Template {
	return schedule.Template{
		ID:         id,
		ClassID:    "6A",
		SubjectID:  "math",
		TimeSlotID: "slot-1",
		DayOfWeek:  day,
		Room:       "B12",
		IsActive:   true,
	}
}

type fakeExporter struct {
	mu      sync.Mutex
	calls   int
	last    []schedule.Session
	err     error
	keyBase string
}

func (f *fakeExporter) ExportSchedule(_ context.Context, teacherID, schoolYearID string, sessions []schedule.Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = sessions
	if f.err != nil {
		return "", f.err
	}
	return f.keyBase + teacherID + "/" + schoolYearID + ".json.zst", nil
}
