package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Dates are stored as YYYY-MM-DD text so range filters compare lexically;
// timestamps are Unix seconds.
var schema = []struct {
	name  string
	query string
}{
	{"school_years", `
	CREATE TABLE IF NOT EXISTS school_years (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_school_years_teacher ON school_years(teacher_id);
	`},
	{"structures", `
	CREATE TABLE IF NOT EXISTS structures (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		name TEXT NOT NULL,
		period_model TEXT NOT NULL,
		periods_per_year INTEGER NOT NULL,
		period_names TEXT NOT NULL DEFAULT '{}',
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_structures_teacher ON structures(teacher_id);
	`},
	{"periods", `
	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		school_year_id TEXT NOT NULL REFERENCES school_years(id) ON DELETE CASCADE,
		teacher_id TEXT NOT NULL,
		name TEXT NOT NULL,
		period_order INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		UNIQUE(school_year_id, period_order)
	);
	CREATE INDEX IF NOT EXISTS idx_periods_teacher_year ON periods(teacher_id, school_year_id);
	`},
	{"templates", `
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		time_slot_id TEXT NOT NULL,
		day_of_week INTEGER NOT NULL CHECK(day_of_week BETWEEN 1 AND 7),
		room TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_templates_teacher ON templates(teacher_id, is_active);
	`},
	{"exceptions", `
	CREATE TABLE IF NOT EXISTS exceptions (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		template_id TEXT NOT NULL,
		exception_date TEXT NOT NULL,
		type TEXT CHECK(type IN ('cancelled', 'moved', 'added')) NOT NULL,
		new_time_slot_id TEXT NOT NULL DEFAULT '',
		new_room TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		session_data TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_exceptions_teacher_date ON exceptions(teacher_id, exception_date);
	`},
	{"sessions", `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		time_slot_id TEXT NOT NULL,
		template_id TEXT NOT NULL DEFAULT '',
		exception_id TEXT NOT NULL DEFAULT '',
		session_date TEXT NOT NULL,
		status TEXT NOT NULL,
		room TEXT NOT NULL DEFAULT '',
		is_moved INTEGER NOT NULL DEFAULT 0,
		is_makeup INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		objectives TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		homework_assigned TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_teacher_date ON sessions(teacher_id, session_date);
	`},
}

// InitSchema creates all tables and indexes. It is idempotent.
// Connection PRAGMAs are set in the DSN by open.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range schema {
		if _, err := db.ExecContext(ctx, table.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}
	return nil
}
