package attendance

import (
	"context"
	"fmt"
	"time"
)

type demoAccount struct {
	name, email, password string
	role                  Role
}

var demoAccounts = []demoAccount{
	{"Administrador", "admin@escola.com", "admin123", RoleAdmin},
	{"Professor Silva", "prof@escola.com", "prof123", RoleTeacher},
	{"João Aluno", "aluno@escola.com", "aluno123", RoleStudent},
	{"Maria Aluna", "maria@escola.com", "maria123", RoleStudent},
	{"Pedro Aluno", "pedro@escola.com", "pedro123", RoleStudent},
}

// Seed inserts the demo accounts when the user table is empty and reports whether it did.
// With samples set it also records a short check-in history for the demo students.
func Seed(ctx context.Context, svc *Service, samples bool) (bool, error) {
	n, err := svc.users.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	created := make(map[string]User, len(demoAccounts))
	for _, acc := range demoAccounts {
		u, err := svc.CreateUser(ctx, NewUser{Name: acc.name, Email: acc.email, Password: acc.password, Role: acc.role})
		if err != nil {
			return false, fmt.Errorf("seed %s: %w", acc.email, err)
		}
		created[acc.email] = u
	}
	if !samples {
		return true, nil
	}

	teacher := created["prof@escola.com"].ID
	today := svc.now().UTC().Truncate(24 * time.Hour).Add(8 * time.Hour)
	history := []struct {
		email  string
		at     time.Time
		target Status
		notes  string
	}{
		{"aluno@escola.com", today, StatusPending, ""},
		{"maria@escola.com", today.AddDate(0, 0, -1), StatusApproved, "Presente"},
		{"pedro@escola.com", today.AddDate(0, 0, -1), StatusRejected, "Chegou atrasado"},
		{"aluno@escola.com", today.AddDate(0, 0, -2), StatusApproved, ""},
	}
	for _, h := range history {
		c, err := svc.CreateCheckIn(ctx, NewCheckIn{StudentID: created[h.email].ID, Timestamp: h.at})
		if err != nil {
			return true, fmt.Errorf("seed check-in for %s: %w", h.email, err)
		}
		if h.target == StatusPending {
			continue
		}
		notes := h.notes
		if _, err := svc.Transition(ctx, c.ID, h.target, &notes, teacher); err != nil {
			return true, fmt.Errorf("seed transition for %s: %w", h.email, err)
		}
	}
	return true, nil
}
