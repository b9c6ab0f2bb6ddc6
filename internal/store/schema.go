package store

import (
	"context"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		password    TEXT NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('admin', 'teacher', 'student')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS checkins (
		id             TEXT PRIMARY KEY,
		student_id     TEXT NOT NULL,
		student_name   TEXT NOT NULL,
		timestamp      TIMESTAMPTZ NOT NULL,
		check_in_date  CHAR(10) NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		notes          TEXT,
		approved_by    TEXT,
		approved_at    TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		password    TEXT NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('admin', 'teacher', 'student')),
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS checkins (
		id             TEXT PRIMARY KEY,
		student_id     TEXT NOT NULL,
		student_name   TEXT NOT NULL,
		timestamp      DATETIME NOT NULL,
		check_in_date  TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		notes          TEXT,
		approved_by    TEXT,
		approved_at    DATETIME,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
}

// Indexes are shared between dialects. checkins.student_id has no foreign key so
// deleting a user keeps their history.
var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_student_id ON checkins(student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_status ON checkins(status)`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_timestamp ON checkins(timestamp)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkins_student_day ON checkins(student_id, check_in_date)`,
}

// Migrate creates tables and indexes when they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if d.Driver == DriverPostgres {
		stmts = postgresSchema
	}
	stmts = append(append([]string{}, stmts...), indexes...)

	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
