package planner

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/schedule"
	"github.com/garyellow/classroom-planner/internal/storage"
)

func setupSchedule(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, _ := newTestService(opts...)
	ctx := context.Background()

	_, err := createYear(svc)
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, teacher, weeklyTemplate("tpl-mon", 1))
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, teacher, weeklyTemplate("tpl-fri", 5))
	require.NoError(t, err)
	return svc
}

func TestCreateTemplate(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()
	ctx := context.Background()

	tpl := weeklyTemplate("", 3)
	tpl.TeacherID = "someone-else"
	saved, err := svc.CreateTemplate(ctx, teacher, tpl)
	require.NoError(t, err)
	assert.Equal(t, "id-1", saved.ID)
	assert.Equal(t, teacher, saved.TeacherID)

	list, err := svc.ListTemplates(ctx, teacher, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *saved, list[0])

	require.NoError(t, svc.DeleteTemplate(ctx, teacher, saved.ID))
	assert.True(t, errors.IsNotFound(svc.DeleteTemplate(ctx, teacher, saved.ID)))
}

func TestCreateTemplate_Invalid(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	_, err := svc.CreateTemplate(context.Background(), teacher, schedule.Template{ID: "tpl", DayOfWeek: 8})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))

	fields := make([]string, 0)
	for _, v := range errors.AsValidation(err) {
		fields = append(fields, v.Field)
	}
	assert.Contains(t, fields, "templates[0].dayOfWeek")
	assert.Contains(t, fields, "templates[0].classId")
}

func TestListTemplates_ActiveOnly(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	inactive := weeklyTemplate("tpl-wed", 3)
	inactive.IsActive = false
	_, err := svc.CreateTemplate(ctx, teacher, inactive)
	require.NoError(t, err)

	all, err := svc.ListTemplates(ctx, teacher, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := svc.ListTemplates(ctx, teacher, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestWeekSessions(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)

	// A Thursday resolves to its Monday.
	sessions, err := svc.WeekSessions(context.Background(), teacher, d("2024-09-12"))
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "2024-09-09", dateutil.FormatDate(sessions[0].SessionDate))
	assert.Equal(t, "2024-09-13", dateutil.FormatDate(sessions[1].SessionDate))
	assert.Equal(t, clock(), sessions[0].CreatedAt)

	stored, err := svc.ListSessions(context.Background(), teacher, d("2024-09-09"), d("2024-09-15"))
	require.NoError(t, err)
	assert.Empty(t, stored, "week generation is not persisted")
}

func TestCancelOccurrence(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	exc, err := svc.CancelOccurrence(ctx, teacher, "tpl-mon", d("2024-09-09"), "sortie scolaire")
	require.NoError(t, err)
	assert.Equal(t, schedule.ExceptionCancelled, exc.Type)

	sessions, err := svc.WeekSessions(ctx, teacher, d("2024-09-09"))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "tpl-fri", sessions[0].TemplateID)

	require.NoError(t, svc.DeleteException(ctx, teacher, exc.ID))
	sessions, err = svc.WeekSessions(ctx, teacher, d("2024-09-09"))
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestCancelOccurrence_WrongWeekday(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)

	_, err := svc.CancelOccurrence(context.Background(), teacher, "tpl-mon", d("2024-09-10"), "")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidInput(err))
	require.Len(t, errors.AsValidation(err), 1)
	assert.Equal(t, "date", errors.AsValidation(err)[0].Field)
}

func TestCancelOccurrence_UnknownTemplate(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)

	_, err := svc.CancelOccurrence(context.Background(), teacher, "missing", d("2024-09-09"), "")
	assert.True(t, errors.IsNotFound(err))
}

func TestMoveOccurrence(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	moved, added, err := svc.MoveOccurrence(ctx, teacher, MoveInput{
		TemplateID:   "tpl-mon",
		OriginalDate: d("2024-09-09"),
		NewDate:      d("2024-09-11"),
		NewRoom:      "C3",
		Reason:       "conseil de classe",
	})
	require.NoError(t, err)
	assert.Equal(t, schedule.ExceptionMoved, moved.Type)
	assert.Equal(t, schedule.ExceptionAdded, added.Type)
	assert.Equal(t, "slot-1", added.NewTimeSlotID, "time slot defaults to the template's")
	require.NotNil(t, added.SessionData)
	assert.Equal(t, "6A", added.SessionData.ClassID)

	sessions, err := svc.WeekSessions(ctx, teacher, d("2024-09-09"))
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	byDate := make(map[string]schedule.Session, len(sessions))
	for _, s := range sessions {
		byDate[dateutil.FormatDate(s.SessionDate)] = s
	}
	assert.True(t, byDate["2024-09-09"].IsMoved)
	assert.Equal(t, "C3", byDate["2024-09-09"].Room)
	wed := byDate["2024-09-11"]
	assert.Equal(t, "C3", wed.Room)
	assert.Equal(t, "conseil de classe", wed.Notes)
	assert.Equal(t, teacher, wed.TeacherID)
	assert.False(t, byDate["2024-09-13"].IsMoved)
}

func TestDeleteException_RemovesBothHalvesOfAMove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, half := range []string{"moved", "added"} {
		t.Run(half, func(t *testing.T) {
			t.Parallel()
			svc := setupSchedule(t)

			moved, added, err := svc.MoveOccurrence(ctx, teacher, MoveInput{
				TemplateID:   "tpl-mon",
				OriginalDate: d("2024-09-09"),
				NewDate:      d("2024-09-11"),
			})
			require.NoError(t, err)

			id := moved.ID
			if half == "added" {
				id = added.ID
			}
			require.NoError(t, svc.DeleteException(ctx, teacher, id))

			sessions, err := svc.WeekSessions(ctx, teacher, d("2024-09-09"))
			require.NoError(t, err)
			require.Len(t, sessions, 2, "the class is back at its original slot only")
			for _, s := range sessions {
				assert.False(t, s.IsMoved)
				assert.Empty(t, s.ExceptionID)
			}
		})
	}
}

func TestDeleteException_PlainAddition(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	exc, err := svc.AddSession(ctx, teacher, AddInput{TemplateID: "tpl-mon", Date: d("2024-09-14")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteException(ctx, teacher, exc.ID))
	assert.True(t, errors.IsNotFound(svc.DeleteException(ctx, teacher, exc.ID)))
}

func TestCancelThenMakeupSameDay(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	_, err := svc.CancelOccurrence(ctx, teacher, "tpl-mon", d("2024-09-09"), "absence")
	require.NoError(t, err)
	makeup, err := svc.AddSession(ctx, teacher, AddInput{
		TemplateID: "tpl-mon",
		Date:       d("2024-09-09"),
		TimeSlotID: "slot-6",
		Data:       schedule.SessionData{IsMakeup: true},
	})
	require.NoError(t, err)

	sessions, err := svc.WeekSessions(ctx, teacher, d("2024-09-09"))
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	var monday []schedule.Session
	for _, s := range sessions {
		if s.TemplateID == "tpl-mon" {
			monday = append(monday, s)
		}
	}
	require.Len(t, monday, 1, "the cancelled occurrence stays cancelled")
	assert.Equal(t, makeup.ID, monday[0].ExceptionID)
	assert.Equal(t, "slot-6", monday[0].TimeSlotID)
}

func TestMoveOccurrence_MissingNewDate(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)

	_, _, err := svc.MoveOccurrence(context.Background(), teacher, MoveInput{
		TemplateID:   "tpl-mon",
		OriginalDate: d("2024-09-09"),
	})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestAddSession(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)
	ctx := context.Background()

	exc, err := svc.AddSession(ctx, teacher, AddInput{
		TemplateID: "tpl-mon",
		Date:       d("2024-09-14"),
		Data:       schedule.SessionData{IsMakeup: true, Objectives: "rattrapage"},
	})
	require.NoError(t, err)
	assert.Equal(t, "B12", exc.NewRoom)

	sessions, err := svc.WeekSessions(ctx, teacher, d("2024-09-09"))
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	sat := sessions[2]
	assert.Equal(t, "2024-09-14", dateutil.FormatDate(sat.SessionDate))
	assert.True(t, sat.IsMakeup)
	assert.Equal(t, "6A", sat.ClassID)
	assert.Equal(t, "rattrapage", sat.Objectives)
}

func TestListSessions_InvalidRange(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService()

	_, err := svc.ListSessions(context.Background(), teacher, d("2024-10-01"), d("2024-09-01"))
	assert.True(t, errors.IsInvalidInput(err))
}

func TestMaterializeSchoolYear(t *testing.T) {
	t.Parallel()
	exporter := &fakeExporter{keyBase: "exports/"}
	svc := setupSchedule(t, WithExporter(exporter))
	ctx := context.Background()

	_, err := svc.CancelOccurrence(ctx, teacher, "tpl-fri", d("2024-12-20"), "vacances")
	require.NoError(t, err)

	result, err := svc.MaterializeSchoolYear(ctx, teacher, "year-2024")
	require.NoError(t, err)
	assert.Equal(t, 86, result.Count)
	assert.Equal(t, "exports/teacher-1/year-2024.json.zst", result.ExportKey)
	assert.Equal(t, 1, exporter.calls)
	assert.Len(t, exporter.last, 86)

	stored, err := svc.ListSessions(ctx, teacher, d("2024-09-02"), d("2025-06-30"))
	require.NoError(t, err)
	assert.Len(t, stored, 86)

	// Materializing again replaces the range instead of duplicating it.
	require.NoError(t, svc.DeleteException(ctx, teacher, mustOnlyException(t, svc)))
	result, err = svc.MaterializeSchoolYear(ctx, teacher, "year-2024")
	require.NoError(t, err)
	assert.Equal(t, 87, result.Count)
	stored, err = svc.ListSessions(ctx, teacher, d("2024-09-02"), d("2025-06-30"))
	require.NoError(t, err)
	assert.Len(t, stored, 87)
}

func mustOnlyException(t *testing.T, svc *Service) string {
	t.Helper()
	list, err := svc.repo.ListExceptions(context.Background(), teacher, d("2024-09-02"), d("2025-06-30"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0].ID
}

func TestMaterializeSchoolYear_ExportFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	exporter := &fakeExporter{err: stderrors.New("bucket unreachable")}
	svc := setupSchedule(t, WithExporter(exporter))

	result, err := svc.MaterializeSchoolYear(context.Background(), teacher, "year-2024")
	require.NoError(t, err)
	assert.Equal(t, 87, result.Count)
	assert.Empty(t, result.ExportKey)
}

func TestMaterializeSchoolYear_UnknownYear(t *testing.T) {
	t.Parallel()
	svc := setupSchedule(t)

	_, err := svc.MaterializeSchoolYear(context.Background(), teacher, "missing")
	assert.True(t, errors.IsNotFound(err))
}

// gatedRepository blocks GetSchoolYear until release is closed.
type gatedRepository struct {
	storage.Repository
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (r *gatedRepository) GetSchoolYear(ctx context.Context, teacherID, id string) (*academic.SchoolYear, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	<-r.release
	return r.Repository.GetSchoolYear(ctx, teacherID, id)
}

func TestMaterializeSchoolYear_SharesConcurrentRuns(t *testing.T) {
	t.Parallel()
	base := setupSchedule(t)
	repo := &gatedRepository{Repository: base.repo, release: make(chan struct{})}
	svc := New(repo, nil, WithClock(clock))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*MaterializeResult, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Go(func() {
			results[i], errs[i] = svc.MaterializeSchoolYear(context.Background(), teacher, "year-2024")
		})
	}

	time.Sleep(50 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, 87, results[i].Count)
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 1, repo.calls)
}

func TestMaterializeSchoolYear_CallerCancellation(t *testing.T) {
	t.Parallel()
	base := setupSchedule(t)
	repo := &gatedRepository{Repository: base.repo, release: make(chan struct{})}
	svc := New(repo, nil, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.MaterializeSchoolYear(ctx, teacher, "year-2024")
	require.ErrorIs(t, err, context.Canceled)

	// The shared run keeps going and completes once unblocked.
	close(repo.release)
	result, err := svc.MaterializeSchoolYear(context.Background(), teacher, "year-2024")
	require.NoError(t, err)
	assert.Equal(t, 87, result.Count)
}
