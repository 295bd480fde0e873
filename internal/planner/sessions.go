package planner

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/classroom-planner/internal/config"
	"github.com/garyellow/classroom-planner/internal/ctxutil"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

// CreateTemplate validates and stores a weekly template. A missing ID is
// generated; the template is always owned by teacherID.
func (s *Service) CreateTemplate(ctx context.Context, teacherID string, tpl schedule.Template) (*schedule.Template, error) {
	wrapper := errors.NewWrapper("planner", "create_template")
	tpl.TeacherID = teacherID
	if tpl.ID == "" {
		tpl.ID = s.newID()
	}
	if err := schedule.ValidateTemplates([]schedule.Template{tpl}); err != nil {
		return nil, wrapper.Wrap(err, "Modèle de cours invalide")
	}
	if err := s.repo.SaveTemplate(ctx, &tpl); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer le modèle de cours")
	}
	return &tpl, nil
}

// ListTemplates returns the teacher's templates.
func (s *Service) ListTemplates(ctx context.Context, teacherID string, activeOnly bool) ([]schedule.Template, error) {
	templates, err := s.repo.ListTemplates(ctx, teacherID, activeOnly)
	if err != nil {
		return nil, errors.NewWrapper("planner", "list_templates").Wrap(err, "Impossible de charger les modèles de cours")
	}
	return templates, nil
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, teacherID, id string) error {
	if err := s.repo.DeleteTemplate(ctx, teacherID, id); err != nil {
		return errors.NewWrapper("planner", "delete_template").Wrap(err, "Impossible de supprimer le modèle de cours")
	}
	return nil
}

// loadScheduleInputs fetches the active templates and the exceptions dated
// within [from, to] concurrently.
func (s *Service) loadScheduleInputs(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Template, []schedule.Exception, error) {
	var (
		templates  []schedule.Template
		exceptions []schedule.Exception
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		templates, err = s.repo.ListTemplates(gctx, teacherID, true)
		return err
	})
	g.Go(func() error {
		var err error
		exceptions, err = s.repo.ListExceptions(gctx, teacherID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return templates, exceptions, nil
}

// WeekSessions generates, without storing, the sessions of the Monday-based
// week containing weekStart.
func (s *Service) WeekSessions(ctx context.Context, teacherID string, weekStart time.Time) ([]schedule.Session, error) {
	wrapper := errors.NewWrapper("planner", "week_sessions")
	start := time.Now()

	monday := dateutil.WeekStart(weekStart)
	templates, exceptions, err := s.loadScheduleInputs(ctx, teacherID, monday, dateutil.AddDays(monday, 6))
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger l'emploi du temps")
	}

	sessions, err := schedule.GenerateWeekSessions(monday, templates, exceptions, s.now())
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de générer la semaine")
	}
	s.metrics.RecordGeneration("week_sessions", "session", len(sessions), time.Since(start))
	return sessions, nil
}

// MaterializeSchoolYear generates every session of the school year and
// replaces the stored sessions within its range. Concurrent calls for the
// same teacher and year share one run.
func (s *Service) MaterializeSchoolYear(ctx context.Context, teacherID, schoolYearID string) (*MaterializeResult, error) {
	key := teacherID + "|" + schoolYearID
	ch := s.materialize.DoChan(key, func() (any, error) {
		// The run outlives any single caller's cancellation.
		runCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), config.MaterializeYear)
		defer cancel()
		return s.materializeSchoolYear(runCtx, teacherID, schoolYearID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.metrics.RecordSingleflightDedup("materialize_school_year")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*MaterializeResult)
		return &result, nil
	}
}

func (s *Service) materializeSchoolYear(ctx context.Context, teacherID, schoolYearID string) (*MaterializeResult, error) {
	wrapper := errors.NewWrapper("planner", "materialize_school_year")
	start := time.Now()

	year, err := s.repo.GetSchoolYear(ctx, teacherID, schoolYearID)
	if err != nil {
		return nil, wrapper.Wrap(err, "Année scolaire introuvable")
	}
	templates, exceptions, err := s.loadScheduleInputs(ctx, teacherID, year.StartDate, year.EndDate)
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger l'emploi du temps")
	}

	sessions, err := schedule.GenerateSchoolYearSessions(year.StartDate, year.EndDate, templates, exceptions, s.now())
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de générer les séances de l'année")
	}
	if err := s.repo.ReplaceSessionsInRange(ctx, teacherID, year.StartDate, year.EndDate, sessions); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'enregistrer les séances")
	}

	result := &MaterializeResult{
		SchoolYearID: year.ID,
		Count:        len(sessions),
		From:         year.StartDate,
		To:           year.EndDate,
	}
	if s.exporter != nil {
		key, err := s.exporter.ExportSchedule(ctx, teacherID, year.ID, sessions)
		if err != nil {
			// The sessions are stored; a failed export does not fail the call.
			slog.WarnContext(ctx, "schedule export failed",
				"school_year_id", year.ID,
				"error", err)
		} else {
			result.ExportKey = key
		}
	}

	duration := time.Since(start)
	s.metrics.RecordGeneration("materialize_school_year", "session", len(sessions), duration)
	slog.InfoContext(ctx, "school year materialized",
		"school_year_id", year.ID,
		"templates", len(templates),
		"exceptions", len(exceptions),
		"sessions", len(sessions),
		"duration_ms", duration.Milliseconds())
	return result, nil
}

// ListSessions returns the stored sessions within [from, to].
func (s *Service) ListSessions(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Session, error) {
	wrapper := errors.NewWrapper("planner", "list_sessions")
	if to.Before(from) {
		return nil, wrapper.Wrap(errors.NewValidationError("to", "La date de fin précède la date de début"), "Intervalle invalide")
	}
	sessions, err := s.repo.ListSessions(ctx, teacherID, dateutil.Truncate(from), dateutil.Truncate(to))
	if err != nil {
		return nil, wrapper.Wrap(err, "Impossible de charger les séances")
	}
	return sessions, nil
}

// occurrenceTemplate loads templateID and checks that it runs on date.
func (s *Service) occurrenceTemplate(ctx context.Context, teacherID, templateID string, date time.Time) (*schedule.Template, error) {
	if date.IsZero() {
		return nil, errors.NewValidationError("date", "La date est obligatoire")
	}
	tpl, err := s.repo.GetTemplate(ctx, teacherID, templateID)
	if err != nil {
		return nil, err
	}
	if got := dateutil.IsoWeekday(date); got != tpl.DayOfWeek {
		return nil, errors.NewValidationError("date", fmt.Sprintf(
			"Le cours n'a pas lieu le %s (jour %d, attendu %d)", dateutil.FormatDate(date), got, tpl.DayOfWeek))
	}
	return tpl, nil
}

// CancelOccurrence cancels the occurrence of templateID on date.
func (s *Service) CancelOccurrence(ctx context.Context, teacherID, templateID string, date time.Time, reason string) (*schedule.Exception, error) {
	wrapper := errors.NewWrapper("planner", "cancel_occurrence")
	if _, err := s.occurrenceTemplate(ctx, teacherID, templateID, date); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'annuler cette séance")
	}

	exc := schedule.NewCancellation(templateID, date, reason)
	if err := s.saveExceptions(ctx, teacherID, exc); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'annuler cette séance")
	}
	return &exc, nil
}

// MoveOccurrence relocates one occurrence: the original is flagged moved and
// an added session is created on the new date, carrying the template's class
// and subject.
func (s *Service) MoveOccurrence(ctx context.Context, teacherID string, in MoveInput) (moved, added *schedule.Exception, err error) {
	wrapper := errors.NewWrapper("planner", "move_occurrence")
	tpl, err := s.occurrenceTemplate(ctx, teacherID, in.TemplateID, in.OriginalDate)
	if err != nil {
		return nil, nil, wrapper.Wrap(err, "Impossible de déplacer cette séance")
	}
	if in.NewDate.IsZero() {
		return nil, nil, wrapper.Wrap(errors.NewValidationError("newDate", "La nouvelle date est obligatoire"), "Impossible de déplacer cette séance")
	}

	timeSlot := cmp.Or(in.NewTimeSlotID, tpl.TimeSlotID)
	room := cmp.Or(in.NewRoom, tpl.Room)
	m, a := schedule.NewReschedule(tpl.ID, in.OriginalDate, in.NewDate, timeSlot, room, in.Reason, schedule.SessionData{
		TeacherID: teacherID,
		ClassID:   tpl.ClassID,
		SubjectID: tpl.SubjectID,
		Status:    schedule.StatusPlanned,
	})
	if err := s.saveExceptions(ctx, teacherID, m, a); err != nil {
		return nil, nil, wrapper.Wrap(err, "Impossible de déplacer cette séance")
	}
	return &m, &a, nil
}

// AddSession creates an extra session attached to templateID.
func (s *Service) AddSession(ctx context.Context, teacherID string, in AddInput) (*schedule.Exception, error) {
	wrapper := errors.NewWrapper("planner", "add_session")
	tpl, err := s.repo.GetTemplate(ctx, teacherID, in.TemplateID)
	if err != nil {
		return nil, wrapper.Wrap(err, "Modèle de cours introuvable")
	}

	data := in.Data
	data.TeacherID = teacherID
	if data.ClassID == "" {
		data.ClassID = tpl.ClassID
	}
	if data.SubjectID == "" {
		data.SubjectID = tpl.SubjectID
	}
	timeSlot := cmp.Or(in.TimeSlotID, tpl.TimeSlotID)
	room := cmp.Or(in.Room, tpl.Room)

	exc := schedule.NewAddition(tpl.ID, in.Date, timeSlot, room, data)
	if err := s.saveExceptions(ctx, teacherID, exc); err != nil {
		return nil, wrapper.Wrap(err, "Impossible d'ajouter la séance")
	}
	return &exc, nil
}

// DeleteException removes an exception, restoring the template occurrence.
// Deleting either half of a moved/added pair removes both, so a cancelled
// reschedule never leaves the class at two places.
func (s *Service) DeleteException(ctx context.Context, teacherID, id string) error {
	wrapper := errors.NewWrapper("planner", "delete_exception")
	if err := s.repo.DeleteException(ctx, teacherID, id); err != nil {
		return wrapper.Wrap(err, "Impossible de supprimer l'exception")
	}
	other, ok := schedule.RescheduleCounterpart(id)
	if !ok {
		return nil
	}
	if err := s.repo.DeleteException(ctx, teacherID, other); err != nil && !errors.IsNotFound(err) {
		return wrapper.Wrap(err, "Impossible de supprimer l'exception")
	}
	return nil
}

func (s *Service) saveExceptions(ctx context.Context, teacherID string, exceptions ...schedule.Exception) error {
	if err := schedule.ValidateExceptions(exceptions); err != nil {
		return err
	}
	return s.repo.SaveExceptions(ctx, teacherID, exceptions...)
}
