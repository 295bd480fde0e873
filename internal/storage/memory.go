package storage

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	domerrors "github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

// Memory is a map-backed Repository. It mirrors the SQLite ownership and
// ordering rules and is meant for tests and tooling.
type Memory struct {
	mu         sync.RWMutex
	years      map[string]academic.SchoolYear
	structures map[string]academic.Structure
	periods    map[string][]academic.Period // by teacher|school year
	templates  map[string]schedule.Template
	exceptions map[string]memoryException
	sessions   map[string]schedule.Session
	closed     bool
}

type memoryException struct {
	teacherID string
	exception schedule.Exception
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		years:      make(map[string]academic.SchoolYear),
		structures: make(map[string]academic.Structure),
		periods:    make(map[string][]academic.Period),
		templates:  make(map[string]schedule.Template),
		exceptions: make(map[string]memoryException),
		sessions:   make(map[string]schedule.Session),
	}
}

func (m *Memory) SaveSchoolYear(_ context.Context, year *academic.SchoolYear) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.years[year.ID]; ok && old.TeacherID != year.TeacherID {
		return fmt.Errorf("school year %s: %w", year.ID, domerrors.ErrConflict)
	}
	m.years[year.ID] = *year
	return nil
}

func (m *Memory) GetSchoolYear(_ context.Context, teacherID, id string) (*academic.SchoolYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	year, ok := m.years[id]
	if !ok || year.TeacherID != teacherID {
		return nil, fmt.Errorf("school year %s: %w", id, domerrors.ErrNotFound)
	}
	return &year, nil
}

func (m *Memory) ListSchoolYears(_ context.Context, teacherID string) ([]academic.SchoolYear, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var years []academic.SchoolYear
	for _, y := range m.years {
		if y.TeacherID == teacherID {
			years = append(years, y)
		}
	}
	slices.SortFunc(years, func(a, b academic.SchoolYear) int { return b.StartDate.Compare(a.StartDate) })
	return years, nil
}

func (m *Memory) SaveStructure(_ context.Context, structure *academic.Structure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.structures[structure.ID]; ok && old.TeacherID != structure.TeacherID {
		return fmt.Errorf("structure %s: %w", structure.ID, domerrors.ErrConflict)
	}
	s := *structure
	s.PeriodNames = maps.Clone(structure.PeriodNames)
	m.structures[s.ID] = s
	return nil
}

func (m *Memory) GetStructure(_ context.Context, teacherID, id string) (*academic.Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.structures[id]
	if !ok || s.TeacherID != teacherID {
		return nil, fmt.Errorf("structure %s: %w", id, domerrors.ErrNotFound)
	}
	s.PeriodNames = maps.Clone(s.PeriodNames)
	return &s, nil
}

func (m *Memory) ListStructures(_ context.Context, teacherID string) ([]academic.Structure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []academic.Structure
	for _, s := range m.structures {
		if s.TeacherID == teacherID {
			s.PeriodNames = maps.Clone(s.PeriodNames)
			list = append(list, s)
		}
	}
	slices.SortFunc(list, func(a, b academic.Structure) int { return cmp.Compare(a.Name, b.Name) })
	return list, nil
}

func (m *Memory) ReplacePeriods(_ context.Context, teacherID, schoolYearID string, periods []academic.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]academic.Period, len(periods))
	for i, p := range periods {
		p.TeacherID = teacherID
		p.SchoolYearID = schoolYearID
		stored[i] = p
	}
	slices.SortFunc(stored, func(a, b academic.Period) int { return cmp.Compare(a.Order, b.Order) })
	m.periods[teacherID+"|"+schoolYearID] = stored
	return nil
}

func (m *Memory) ListPeriods(_ context.Context, teacherID, schoolYearID string) ([]academic.Period, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.periods[teacherID+"|"+schoolYearID]), nil
}

func (m *Memory) SaveTemplate(_ context.Context, t *schedule.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.templates[t.ID]; ok && old.TeacherID != t.TeacherID {
		return fmt.Errorf("template %s: %w", t.ID, domerrors.ErrConflict)
	}
	m.templates[t.ID] = *t
	return nil
}

func (m *Memory) GetTemplate(_ context.Context, teacherID, id string) (*schedule.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok || t.TeacherID != teacherID {
		return nil, fmt.Errorf("template %s: %w", id, domerrors.ErrNotFound)
	}
	return &t, nil
}

func (m *Memory) ListTemplates(_ context.Context, teacherID string, activeOnly bool) ([]schedule.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []schedule.Template
	for _, t := range m.templates {
		if t.TeacherID == teacherID && (!activeOnly || t.IsActive) {
			list = append(list, t)
		}
	}
	slices.SortFunc(list, func(a, b schedule.Template) int {
		return cmp.Or(
			cmp.Compare(a.DayOfWeek, b.DayOfWeek),
			cmp.Compare(a.TimeSlotID, b.TimeSlotID),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return list, nil
}

func (m *Memory) DeleteTemplate(_ context.Context, teacherID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.TeacherID != teacherID {
		return fmt.Errorf("template %s: %w", id, domerrors.ErrNotFound)
	}
	delete(m.templates, id)
	return nil
}

func (m *Memory) SaveExceptions(_ context.Context, teacherID string, exceptions ...schedule.Exception) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range exceptions {
		if old, ok := m.exceptions[e.ID]; ok && old.teacherID != teacherID {
			return fmt.Errorf("exception %s: %w", e.ID, domerrors.ErrConflict)
		}
	}
	for _, e := range exceptions {
		m.exceptions[e.ID] = memoryException{teacherID: teacherID, exception: cloneException(e)}
	}
	return nil
}

func (m *Memory) GetException(_ context.Context, teacherID, id string) (*schedule.Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exceptions[id]
	if !ok || e.teacherID != teacherID {
		return nil, fmt.Errorf("exception %s: %w", id, domerrors.ErrNotFound)
	}
	out := cloneException(e.exception)
	return &out, nil
}

func (m *Memory) ListExceptions(_ context.Context, teacherID string, from, to time.Time) ([]schedule.Exception, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []schedule.Exception
	for _, e := range m.exceptions {
		if e.teacherID == teacherID && dateutil.Between(e.exception.ExceptionDate, from, to) {
			list = append(list, cloneException(e.exception))
		}
	}
	slices.SortFunc(list, func(a, b schedule.Exception) int {
		return cmp.Or(a.ExceptionDate.Compare(b.ExceptionDate), cmp.Compare(a.ID, b.ID))
	})
	return list, nil
}

func (m *Memory) DeleteException(_ context.Context, teacherID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exceptions[id]
	if !ok || e.teacherID != teacherID {
		return fmt.Errorf("exception %s: %w", id, domerrors.ErrNotFound)
	}
	delete(m.exceptions, id)
	return nil
}

func (m *Memory) ReplaceSessionsInRange(_ context.Context, teacherID string, from, to time.Time, sessions []schedule.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.DeleteFunc(m.sessions, func(_ string, s schedule.Session) bool {
		return s.TeacherID == teacherID && dateutil.Between(s.SessionDate, from, to)
	})
	for _, s := range sessions {
		s.TeacherID = teacherID
		m.sessions[s.ID] = s
	}
	return nil
}

func (m *Memory) ListSessions(_ context.Context, teacherID string, from, to time.Time) ([]schedule.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []schedule.Session
	for _, s := range m.sessions {
		if s.TeacherID == teacherID && dateutil.Between(s.SessionDate, from, to) {
			list = append(list, s)
		}
	}
	slices.SortFunc(list, func(a, b schedule.Session) int {
		return cmp.Or(
			a.SessionDate.Compare(b.SessionDate),
			cmp.Compare(a.TimeSlotID, b.TimeSlotID),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return list, nil
}

// Ping fails once the repository is closed.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory repository closed: %w", domerrors.ErrUnavailable)
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneException(e schedule.Exception) schedule.Exception {
	if e.SessionData != nil {
		data := *e.SessionData
		e.SessionData = &data
	}
	return e
}
