package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"schoolattendance/internal/store"
)

const userColumns = `id, name, email, password, role, created_at, updated_at`

// UserRepository persists users.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a repo.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used for updated_at.
func (r *UserRepository) WithClock(now func() time.Time) *UserRepository {
	r.now = now
	return r
}

// Get returns a user by id, or nil when it does not exist.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail returns a user by email, or nil when it does not exist.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalizeEmail(email))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.normalize()
	return &u, nil
}

// List returns all users sorted by name.
func (r *UserRepository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC`); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].normalize()
	}
	return users, nil
}

// Create inserts a user. A taken id or email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (id, name, email, password, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), u.ID, u.Name, normalizeEmail(u.Email), u.PasswordHash, string(u.Role), stamp(u.CreatedAt), stamp(u.UpdatedAt))
	return mapWriteError(err)
}

// Update merges the non-nil fields of patch onto the user and bumps updated_at.
// It reports false when no user has that id.
func (r *UserRepository) Update(ctx context.Context, id string, patch UserPatch) (bool, error) {
	clauses := []string{}
	args := []any{}
	if patch.Name != nil {
		clauses = append(clauses, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Email != nil {
		clauses = append(clauses, "email = ?")
		args = append(args, normalizeEmail(*patch.Email))
	}
	if patch.PasswordHash != nil {
		clauses = append(clauses, "password = ?")
		args = append(args, *patch.PasswordHash)
	}
	if patch.Role != nil {
		clauses = append(clauses, "role = ?")
		args = append(args, string(*patch.Role))
	}
	clauses = append(clauses, "updated_at = ?")
	args = append(args, stamp(r.now()), id)

	query := `UPDATE users SET ` + strings.Join(clauses, ", ") + ` WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, mapWriteError(err)
	}
	return affected(res)
}

// Delete removes a user. Their check-ins are kept.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// CountByRole returns the number of users per role; roles without users are absent.
func (r *UserRepository) CountByRole(ctx context.Context) (map[Role]int, error) {
	var rows []groupCount
	if err := r.db.SelectContext(ctx, &rows, `SELECT role AS k, COUNT(*) AS n FROM users GROUP BY role`); err != nil {
		return nil, err
	}
	out := make(map[Role]int, len(rows))
	for _, row := range rows {
		out[Role(row.Key)] = row.N
	}
	return out, nil
}

type groupCount struct {
	Key string `db:"k"`
	N   int    `db:"n"`
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if store.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
