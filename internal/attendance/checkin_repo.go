package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const checkInColumns = `id, student_id, student_name, timestamp, check_in_date, status, notes, approved_by, approved_at, created_at, updated_at`

// CheckInRepository persists check-ins.
type CheckInRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewCheckInRepository creates a repo.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used for approved_at and updated_at.
func (r *CheckInRepository) WithClock(now func() time.Time) *CheckInRepository {
	r.now = now
	return r
}

// Get returns a single check-in by id, or nil when it does not exist.
func (r *CheckInRepository) Get(ctx context.Context, id string) (*CheckIn, error) {
	var c CheckIn
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT `+checkInColumns+` FROM checkins WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.normalize()
	return &c, nil
}

// List returns check-ins matching the filter, newest first.
func (r *CheckInRepository) List(ctx context.Context, filter CheckInFilter) ([]CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM checkins`
	clauses := []string{}
	args := []any{}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.StudentID != "" {
		clauses = append(clauses, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC"
	return r.selectMany(ctx, query, args...)
}

// ListByStudentAndDate returns the student's check-ins on the calendar date of day.
// Time of day is ignored.
func (r *CheckInRepository) ListByStudentAndDate(ctx context.Context, studentID string, day time.Time) ([]CheckIn, error) {
	return r.selectMany(ctx,
		`SELECT `+checkInColumns+` FROM checkins WHERE student_id = ? AND check_in_date = ? ORDER BY timestamp DESC`,
		studentID, DateKey(day))
}

func (r *CheckInRepository) selectMany(ctx context.Context, query string, args ...any) ([]CheckIn, error) {
	var res []CheckIn
	if err := r.db.SelectContext(ctx, &res, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].normalize()
	}
	return res, nil
}

// Create inserts a pending check-in. A second check-in for the same student and date
// yields ErrDuplicate.
func (r *CheckInRepository) Create(ctx context.Context, c CheckIn) error {
	ts := stamp(c.Timestamp)
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO checkins (id, student_id, student_name, timestamp, check_in_date, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.StudentID, c.StudentName, ts, DateKey(ts), string(StatusPending), nullable(c.Notes), stamp(c.CreatedAt), stamp(c.UpdatedAt))
	return mapWriteError(err)
}

// UpdateStatus moves a pending check-in to status. approved_at is stamped unless status is
// pending. Notes, when nil, keep their previous value. The update only applies to rows that
// are still pending, so it reports false both for unknown ids and for check-ins that were
// already processed.
func (r *CheckInRepository) UpdateStatus(ctx context.Context, id string, status Status, notes, approvedBy *string) (bool, error) {
	now := stamp(r.now())
	var approvedAt any
	if status != StatusPending {
		approvedAt = now
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE checkins
		SET status = ?, notes = COALESCE(?, notes), approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`), string(status), nullable(notes), nullable(approvedBy), approvedAt, now, id, string(StatusPending))
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Delete removes a check-in.
func (r *CheckInRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM checkins WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// CountByStatus returns the number of check-ins per status; statuses without rows are absent.
func (r *CheckInRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []groupCount
	if err := r.db.SelectContext(ctx, &rows, `SELECT status AS k, COUNT(*) AS n FROM checkins GROUP BY status`); err != nil {
		return nil, err
	}
	out := make(map[Status]int, len(rows))
	for _, row := range rows {
		out[Status(row.Key)] = row.N
	}
	return out, nil
}

// nullable unwraps optional text columns into values every driver accepts.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// CountByDate returns check-in counts per calendar date and status.
func (r *CheckInRepository) CountByDate(ctx context.Context) (map[string]map[Status]int, error) {
	var rows []struct {
		Date string `db:"d"`
		groupCount
	}
	err := r.db.SelectContext(ctx, &rows,
		`SELECT check_in_date AS d, status AS k, COUNT(*) AS n FROM checkins GROUP BY check_in_date, status`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[Status]int)
	for _, row := range rows {
		day, ok := out[row.Date]
		if !ok {
			day = make(map[Status]int, len(Statuses))
			out[row.Date] = day
		}
		day[Status(row.Key)] = row.N
	}
	return out, nil
}
