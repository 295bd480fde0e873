package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/classroom-planner/internal/academic"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	domerrors "github.com/garyellow/classroom-planner/internal/errors"
)

// SaveSchoolYear inserts or updates a school year.
func (db *DB) SaveSchoolYear(ctx context.Context, year *academic.SchoolYear) error {
	query := `
		INSERT INTO school_years (id, teacher_id, name, start_date, end_date, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
		WHERE school_years.teacher_id = excluded.teacher_id
	`
	res, err := db.writer.ExecContext(ctx, query,
		year.ID, year.TeacherID, year.Name,
		dateutil.FormatDate(year.StartDate), dateutil.FormatDate(year.EndDate),
		year.IsActive, time.Now().Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save school year",
			"school_year_id", year.ID,
			"error", err)
		return fmt.Errorf("failed to save school year: %w", err)
	}
	return checkOwned(res, "school year", year.ID)
}

// GetSchoolYear retrieves a school year owned by teacherID.
func (db *DB) GetSchoolYear(ctx context.Context, teacherID, id string) (*academic.SchoolYear, error) {
	query := `SELECT id, teacher_id, name, start_date, end_date, is_active FROM school_years WHERE id = ? AND teacher_id = ?`

	year, err := scanSchoolYear(db.reader.QueryRowContext(ctx, query, id, teacherID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("school year %s: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query school year: %w", err)
	}
	return year, nil
}

// ListSchoolYears returns the teacher's school years, most recent first.
func (db *DB) ListSchoolYears(ctx context.Context, teacherID string) ([]academic.SchoolYear, error) {
	query := `SELECT id, teacher_id, name, start_date, end_date, is_active FROM school_years WHERE teacher_id = ? ORDER BY start_date DESC`

	rows, err := db.reader.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query school years: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var years []academic.SchoolYear
	for rows.Next() {
		year, err := scanSchoolYear(rows)
		if err != nil {
			return nil, fmt.Errorf("scan school year: %w", err)
		}
		years = append(years, *year)
	}
	return years, rows.Err()
}

// SaveStructure inserts or updates a structure.
func (db *DB) SaveStructure(ctx context.Context, structure *academic.Structure) error {
	names, err := json.Marshal(structure.PeriodNames)
	if err != nil {
		return fmt.Errorf("marshal period names: %w", err)
	}

	query := `
		INSERT INTO structures (id, teacher_id, name, period_model, periods_per_year, period_names, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			period_model = excluded.period_model,
			periods_per_year = excluded.periods_per_year,
			period_names = excluded.period_names,
			updated_at = excluded.updated_at
		WHERE structures.teacher_id = excluded.teacher_id
	`
	res, err := db.writer.ExecContext(ctx, query,
		structure.ID, structure.TeacherID, structure.Name, structure.PeriodModel,
		structure.PeriodsPerYear, string(names), time.Now().Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to save structure",
			"structure_id", structure.ID,
			"error", err)
		return fmt.Errorf("failed to save structure: %w", err)
	}
	return checkOwned(res, "structure", structure.ID)
}

// GetStructure retrieves a structure owned by teacherID.
func (db *DB) GetStructure(ctx context.Context, teacherID, id string) (*academic.Structure, error) {
	query := `SELECT id, teacher_id, name, period_model, periods_per_year, period_names FROM structures WHERE id = ? AND teacher_id = ?`

	structure, err := scanStructure(db.reader.QueryRowContext(ctx, query, id, teacherID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("structure %s: %w", id, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query structure: %w", err)
	}
	return structure, nil
}

// ListStructures returns the teacher's structures by name.
func (db *DB) ListStructures(ctx context.Context, teacherID string) ([]academic.Structure, error) {
	query := `SELECT id, teacher_id, name, period_model, periods_per_year, period_names FROM structures WHERE teacher_id = ? ORDER BY name`

	rows, err := db.reader.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("query structures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var structures []academic.Structure
	for rows.Next() {
		structure, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan structure: %w", err)
		}
		structures = append(structures, *structure)
	}
	return structures, rows.Err()
}

// ReplacePeriods deletes the school year's periods and inserts periods in
// one transaction.
func (db *DB) ReplacePeriods(ctx context.Context, teacherID, schoolYearID string, periods []academic.Period) error {
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM periods WHERE teacher_id = ? AND school_year_id = ?`, teacherID, schoolYearID); err != nil {
			return fmt.Errorf("delete periods: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO periods (id, school_year_id, teacher_id, name, period_order, start_date, end_date, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare period insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, p := range periods {
			if _, err := stmt.ExecContext(ctx,
				p.ID, schoolYearID, teacherID, p.Name, p.Order,
				dateutil.FormatDate(p.StartDate), dateutil.FormatDate(p.EndDate), p.IsActive); err != nil {
				return fmt.Errorf("insert period %d: %w", p.Order, err)
			}
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to replace periods",
			"school_year_id", schoolYearID,
			"count", len(periods),
			"error", err)
		return err
	}
	logSlow(ctx, "ReplacePeriods", start, "count", len(periods))
	return nil
}

// ListPeriods returns the school year's periods in order.
func (db *DB) ListPeriods(ctx context.Context, teacherID, schoolYearID string) ([]academic.Period, error) {
	query := `
		SELECT id, school_year_id, teacher_id, name, period_order, start_date, end_date, is_active
		FROM periods WHERE teacher_id = ? AND school_year_id = ? ORDER BY period_order
	`
	rows, err := db.reader.QueryContext(ctx, query, teacherID, schoolYearID)
	if err != nil {
		return nil, fmt.Errorf("query periods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var periods []academic.Period
	for rows.Next() {
		var (
			p          academic.Period
			start, end string
		)
		if err := rows.Scan(&p.ID, &p.SchoolYearID, &p.TeacherID, &p.Name, &p.Order, &start, &end, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		if p.StartDate, p.EndDate, err = parseRange(start, end); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchoolYear(row rowScanner) (*academic.SchoolYear, error) {
	var (
		year       academic.SchoolYear
		start, end string
	)
	if err := row.Scan(&year.ID, &year.TeacherID, &year.Name, &start, &end, &year.IsActive); err != nil {
		return nil, err
	}
	var err error
	if year.StartDate, year.EndDate, err = parseRange(start, end); err != nil {
		return nil, err
	}
	return &year, nil
}

func scanStructure(row rowScanner) (*academic.Structure, error) {
	var (
		s     academic.Structure
		names string
	)
	if err := row.Scan(&s.ID, &s.TeacherID, &s.Name, &s.PeriodModel, &s.PeriodsPerYear, &names); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(names), &s.PeriodNames); err != nil {
		return nil, fmt.Errorf("decode period names of %s: %w", s.ID, err)
	}
	return &s, nil
}

func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := dateutil.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("stored start date: %w", err)
	}
	e, err := dateutil.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("stored end date: %w", err)
	}
	return s, e, nil
}

// checkOwned turns an upsert that touched no row (the id belongs to another
// teacher) into ErrConflict.
func checkOwned(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domerrors.ErrConflict)
	}
	return nil
}
