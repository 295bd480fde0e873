package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/classroom-planner/internal/dateutil"
	domerrors "github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/schedule"
)

const templateColumns = `id, teacher_id, class_id, subject_id, time_slot_id, day_of_week, room, is_active`

// SaveTemplate inserts or updates a weekly template.
func (db *DB) SaveTemplate(ctx context.Context, t *schedule.Template) error {
	query := `
		INSERT INTO templates (` + templateColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			class_id = excluded.class_id,
			subject_id = excluded.subject_id,
			time_slot_id = excluded.time_slot_id,
			day_of_week = excluded.day_of_week,
			room = excluded.room,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
		WHERE templates.teacher_id = excluded.teacher_id
	`
	res, err := db.writer.ExecContext(ctx, query,
		t.ID, t.TeacherID, t.ClassID, t.SubjectID, t.TimeSlotID, t.DayOfWeek, t.Room, t.IsActive,
		time.Now().Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save template",
			"template_id", t.ID,
			"error", err)
		return fmt.Errorf("failed to save template: %w", err)
	}
	return checkOwned(res, "template", t.ID)
}

// GetTemplate retrieves a template owned by teacherID.
func (db *DB) GetTemplate(ctx context.Context, teacherID, id string) (*schedule.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id = ? AND teacher_id = ?`

	var t schedule.Template
	err := db.reader.QueryRowContext(ctx, query, id, teacherID).Scan(
		&t.ID, &t.TeacherID, &t.ClassID, &t.SubjectID, &t.TimeSlotID, &t.DayOfWeek, &t.Room, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return &t, nil
}

// ListTemplates returns the teacher's templates ordered by weekday.
func (db *DB) ListTemplates(ctx context.Context, teacherID string, activeOnly bool) ([]schedule.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE teacher_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY day_of_week, time_slot_id, id`

	rows, err := db.reader.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var templates []schedule.Template
	for rows.Next() {
		var t schedule.Template
		if err := rows.Scan(&t.ID, &t.TeacherID, &t.ClassID, &t.SubjectID, &t.TimeSlotID, &t.DayOfWeek, &t.Room, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// DeleteTemplate removes a template. Its exceptions and stored sessions are
// left in place: they are history.
func (db *DB) DeleteTemplate(ctx context.Context, teacherID, id string) error {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM templates WHERE id = ? AND teacher_id = ?`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return checkDeleted(res, "template", id)
}

const exceptionColumns = `id, template_id, exception_date, type, new_time_slot_id, new_room, reason, session_data`

// SaveExceptions inserts or replaces exceptions in one transaction.
func (db *DB) SaveExceptions(ctx context.Context, teacherID string, exceptions ...schedule.Exception) error {
	if len(exceptions) == 0 {
		return nil
	}
	now := time.Now().Unix()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO exceptions (`+exceptionColumns+`, teacher_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				template_id = excluded.template_id,
				exception_date = excluded.exception_date,
				type = excluded.type,
				new_time_slot_id = excluded.new_time_slot_id,
				new_room = excluded.new_room,
				reason = excluded.reason,
				session_data = excluded.session_data
			WHERE exceptions.teacher_id = excluded.teacher_id
		`)
		if err != nil {
			return fmt.Errorf("prepare exception insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range exceptions {
			data, err := encodeSessionData(e.SessionData)
			if err != nil {
				return err
			}
			res, err := stmt.ExecContext(ctx,
				e.ID, e.TemplateID, dateutil.FormatDate(e.ExceptionDate), string(e.Type),
				e.NewTimeSlotID, e.NewRoom, e.Reason, data, teacherID, now)
			if err != nil {
				return fmt.Errorf("insert exception %s: %w", e.ID, err)
			}
			if err := checkOwned(res, "exception", e.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to save exceptions",
			"count", len(exceptions),
			"error", err)
	}
	return err
}

// GetException retrieves an exception owned by teacherID.
func (db *DB) GetException(ctx context.Context, teacherID, id string) (*schedule.Exception, error) {
	query := `SELECT ` + exceptionColumns + ` FROM exceptions WHERE id = ? AND teacher_id = ?`

	e, err := scanException(db.reader.QueryRowContext(ctx, query, id, teacherID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exception %s: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query exception: %w", err)
	}
	return e, nil
}

// ListExceptions returns exceptions dated within [from, to] ordered by date.
func (db *DB) ListExceptions(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Exception, error) {
	query := `
		SELECT ` + exceptionColumns + ` FROM exceptions
		WHERE teacher_id = ? AND exception_date BETWEEN ? AND ?
		ORDER BY exception_date, created_at, id
	`
	rows, err := db.reader.QueryContext(ctx, query, teacherID, dateutil.FormatDate(from), dateutil.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var exceptions []schedule.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		exceptions = append(exceptions, *e)
	}
	return exceptions, rows.Err()
}

// DeleteException removes one exception.
func (db *DB) DeleteException(ctx context.Context, teacherID, id string) error {
	res, err := db.writer.ExecContext(ctx, `DELETE FROM exceptions WHERE id = ? AND teacher_id = ?`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete exception: %w", err)
	}
	return checkDeleted(res, "exception", id)
}

const sessionColumns = `id, teacher_id, class_id, subject_id, time_slot_id, template_id, exception_id,
	session_date, status, room, is_moved, is_makeup, notes, objectives, content, homework_assigned,
	created_at, updated_at`

// ReplaceSessionsInRange swaps the teacher's sessions within [from, to] in
// one transaction.
func (db *DB) ReplaceSessionsInRange(ctx context.Context, teacherID string, from, to time.Time, sessions []schedule.Session) error {
	start := time.Now()
	var deleted int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM sessions WHERE teacher_id = ? AND session_date BETWEEN ? AND ?`,
			teacherID, dateutil.FormatDate(from), dateutil.FormatDate(to))
		if err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		deleted, _ = res.RowsAffected()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sessions (`+sessionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare session insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, s := range sessions {
			if _, err := stmt.ExecContext(ctx,
				s.ID, teacherID, s.ClassID, s.SubjectID, s.TimeSlotID, s.TemplateID, s.ExceptionID,
				dateutil.FormatDate(s.SessionDate), string(s.Status), s.Room, s.IsMoved, s.IsMakeup,
				s.Notes, s.Objectives, s.Content, s.HomeworkAssigned,
				s.CreatedAt.Unix(), s.UpdatedAt.Unix()); err != nil {
				return fmt.Errorf("insert session %s: %w", s.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to replace sessions",
			"from", dateutil.FormatDate(from),
			"to", dateutil.FormatDate(to),
			"count", len(sessions),
			"error", err)
		return err
	}

	slog.DebugContext(ctx, "batch operation completed",
		"operation", "ReplaceSessionsInRange",
		"deleted", deleted,
		"inserted", len(sessions),
		"duration_ms", time.Since(start).Milliseconds())
	logSlow(ctx, "ReplaceSessionsInRange", start, "count", len(sessions))
	return nil
}

// ListSessions returns the teacher's sessions within [from, to].
func (db *DB) ListSessions(ctx context.Context, teacherID string, from, to time.Time) ([]schedule.Session, error) {
	query := `
		SELECT ` + sessionColumns + ` FROM sessions
		WHERE teacher_id = ? AND session_date BETWEEN ? AND ?
		ORDER BY session_date, time_slot_id, id
	`
	start := time.Now()
	rows, err := db.reader.QueryContext(ctx, query, teacherID, dateutil.FormatDate(from), dateutil.FormatDate(to))
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []schedule.Session
	for rows.Next() {
		var (
			s                schedule.Session
			date, status     string
			created, updated int64
		)
		if err := rows.Scan(&s.ID, &s.TeacherID, &s.ClassID, &s.SubjectID, &s.TimeSlotID, &s.TemplateID, &s.ExceptionID,
			&date, &status, &s.Room, &s.IsMoved, &s.IsMakeup, &s.Notes, &s.Objectives, &s.Content, &s.HomeworkAssigned,
			&created, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.SessionDate, err = dateutil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("stored session date: %w", err)
		}
		s.Status = schedule.Status(status)
		s.CreatedAt = time.Unix(created, 0).UTC()
		s.UpdatedAt = time.Unix(updated, 0).UTC()
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logSlow(ctx, "ListSessions", start, "count", len(sessions))
	return sessions, nil
}

func scanException(row rowScanner) (*schedule.Exception, error) {
	var (
		e          schedule.Exception
		date, kind string
		data       sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TemplateID, &date, &kind, &e.NewTimeSlotID, &e.NewRoom, &e.Reason, &data); err != nil {
		return nil, err
	}
	var err error
	if e.ExceptionDate, err = dateutil.ParseDate(date); err != nil {
		return nil, fmt.Errorf("stored exception date: %w", err)
	}
	e.Type = schedule.ExceptionType(kind)
	if data.Valid && data.String != "" {
		e.SessionData = &schedule.SessionData{}
		if err := json.Unmarshal([]byte(data.String), e.SessionData); err != nil {
			return nil, fmt.Errorf("decode session data of %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func encodeSessionData(data *schedule.SessionData) (sql.NullString, error) {
	if data == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal session data: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func checkDeleted(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domerrors.ErrNotFound)
	}
	return nil
}
