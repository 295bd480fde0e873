package schedule

import (
	"slices"
	"time"

	"github.com/garyellow/classroom-planner/internal/dateutil"
)

// GenerateWeekSessions expands templates into the sessions of the week that
// starts on weekStart, applying exceptions:
//   - cancelled drops the occurrence;
//   - moved keeps the occurrence on its date, flagged as moved, with the new
//     room and the reason as notes (the relocated session itself is an added
//     exception);
//   - added materializes a session on the exception date, whether or not a
//     template runs that day.
//
// When several exceptions target the same occurrence the last one wins.
// now stamps CreatedAt and UpdatedAt; every other field depends only on the
// inputs. Invalid templates or exceptions are rejected as a whole.
func GenerateWeekSessions(weekStart time.Time, templates []Template, exceptions []Exception, now time.Time) ([]Session, error) {
	if err := validateInput(templates, exceptions); err != nil {
		return nil, err
	}
	return generateWeek(dateutil.Truncate(weekStart), templates, exceptions, now), nil
}

// GenerateSchoolYearSessions generates every week from the week containing
// start through the week containing end, then drops sessions outside
// [start, end].
func GenerateSchoolYearSessions(start, end time.Time, templates []Template, exceptions []Exception, now time.Time) ([]Session, error) {
	if err := validateInput(templates, exceptions); err != nil {
		return nil, err
	}

	start, end = dateutil.Truncate(start), dateutil.Truncate(end)
	weeks := WeekCount(start, end)
	sessions := make([]Session, 0, weeks*len(templates))

	for weekStart := dateutil.WeekStart(start); !weekStart.After(end); weekStart = dateutil.AddDays(weekStart, 7) {
		weekExceptions := ExceptionsInWeek(exceptions, weekStart)
		sessions = append(sessions, generateWeek(weekStart, templates, weekExceptions, now)...)
	}

	return FilterSessionsInRange(sessions, start, end), nil
}

// WeekCount is the number of Monday-based weeks GenerateSchoolYearSessions
// walks for [start, end].
func WeekCount(start, end time.Time) int {
	first := dateutil.WeekStart(start)
	if first.After(dateutil.Truncate(end)) {
		return 0
	}
	return dateutil.DaysBetween(first, end)/7 + 1
}

// ExceptionsInWeek keeps the exceptions dated within [weekStart, weekStart+6].
func ExceptionsInWeek(exceptions []Exception, weekStart time.Time) []Exception {
	var out []Exception
	for _, e := range exceptions {
		if dateutil.IsDateInWeek(e.ExceptionDate, weekStart) {
			out = append(out, e)
		}
	}
	return out
}

// FilterSessionsInRange keeps sessions dated within [start, end].
func FilterSessionsInRange(sessions []Session, start, end time.Time) []Session {
	return slices.DeleteFunc(slices.Clone(sessions), func(s Session) bool {
		return !dateutil.Between(s.SessionDate, start, end)
	})
}

func generateWeek(weekStart time.Time, templates []Template, exceptions []Exception, now time.Time) []Session {
	// Added exceptions never replace an occurrence; they are appended below.
	byKey := make(map[string]Exception, len(exceptions))
	for _, e := range exceptions {
		if e.Type == ExceptionAdded {
			continue
		}
		byKey[dateutil.ExceptionKey(e.TemplateID, e.ExceptionDate)] = e
	}

	sessions := make([]Session, 0, len(templates))
	for _, tpl := range templates {
		date := dateutil.SessionDate(weekStart, tpl.DayOfWeek)
		exc, ok := byKey[dateutil.ExceptionKey(tpl.ID, date)]

		switch {
		case ok && exc.Type == ExceptionCancelled:
			continue
		case ok && exc.Type == ExceptionMoved:
			sessions = append(sessions, movedSession(tpl, date, exc, now))
		default:
			sessions = append(sessions, templateSession(tpl, date, now))
		}
	}

	for _, e := range exceptions {
		if e.Type != ExceptionAdded {
			continue
		}
		sessions = append(sessions, addedSession(e, findTemplate(templates, e.TemplateID), now))
	}
	return sessions
}

func templateSession(tpl Template, date, now time.Time) Session {
	return Session{
		ID:          SessionID(tpl.ID, date),
		TeacherID:   tpl.TeacherID,
		ClassID:     tpl.ClassID,
		SubjectID:   tpl.SubjectID,
		TimeSlotID:  tpl.TimeSlotID,
		TemplateID:  tpl.ID,
		SessionDate: date,
		Status:      StatusPlanned,
		Room:        tpl.Room,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func movedSession(tpl Template, date time.Time, exc Exception, now time.Time) Session {
	s := templateSession(tpl, date, now)
	s.ID = ExceptionSessionID(tpl.ID, date, exc.NewTimeSlotID, exc.ID)
	s.ExceptionID = exc.ID
	s.IsMoved = true
	s.Room = exc.NewRoom
	s.Notes = exc.Reason
	return s
}

func addedSession(exc Exception, tpl *Template, now time.Time) Session {
	date := dateutil.Truncate(exc.ExceptionDate)
	data := SessionData{}
	if exc.SessionData != nil {
		data = *exc.SessionData
	}

	s := Session{
		ID:               ExceptionSessionID(exc.TemplateID, date, exc.NewTimeSlotID, exc.ID),
		TeacherID:        data.TeacherID,
		ClassID:          data.ClassID,
		SubjectID:        data.SubjectID,
		TimeSlotID:       exc.NewTimeSlotID,
		TemplateID:       exc.TemplateID,
		ExceptionID:      exc.ID,
		SessionDate:      date,
		Status:           data.Status,
		Room:             exc.NewRoom,
		IsMoved:          true,
		IsMakeup:         data.IsMakeup,
		Notes:            data.Notes,
		Objectives:       data.Objectives,
		Content:          data.Content,
		HomeworkAssigned: data.HomeworkAssigned,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if s.Status == "" {
		s.Status = StatusPlanned
	}
	if s.Notes == "" {
		s.Notes = exc.Reason
	}
	if tpl != nil {
		if s.TeacherID == "" {
			s.TeacherID = tpl.TeacherID
		}
		if s.ClassID == "" {
			s.ClassID = tpl.ClassID
		}
		if s.SubjectID == "" {
			s.SubjectID = tpl.SubjectID
		}
	}
	return s
}

func findTemplate(templates []Template, id string) *Template {
	i := slices.IndexFunc(templates, func(t Template) bool { return t.ID == id })
	if i < 0 {
		return nil
	}
	return &templates[i]
}
