package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NewUser is the input for CreateUser. Password is plaintext and hashed before storage.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// UpdateUser is the input for UpdateUser; nil fields are left unchanged.
type UpdateUser struct {
	Name     *string
	Email    *string
	Password *string
	Role     *Role
}

// CreateUser validates and stores a new account.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	verr := &ValidationError{}
	if in.Name == "" {
		verr.add("name", "is required")
	}
	s.checkEmail(verr, in.Email)
	if in.Password == "" {
		verr.add("password", "is required")
	}
	checkRole(verr, in.Role)
	if err := verr.orNil(); err != nil {
		return User{}, err
	}

	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := stamp(s.now())
	u := User{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UpdateUser applies a partial update and returns the stored result.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUser) (User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	verr := &ValidationError{}
	patch := UserPatch{Role: in.Role}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			verr.add("name", "must not be empty")
		}
		patch.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		s.checkEmail(verr, email)
		patch.Email = &email
	}
	if in.Password != nil && *in.Password == "" {
		verr.add("password", "must not be empty")
	}
	if in.Role != nil {
		checkRole(verr, *in.Role)
	}
	if err := verr.orNil(); err != nil {
		return User{}, err
	}

	if patch.Email != nil && *patch.Email != current.Email {
		if err := s.ensureEmailFree(ctx, *patch.Email, id); err != nil {
			return User{}, err
		}
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	ok, err := s.users.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes the account id on behalf of actorID and returns it as it was.
// Check-ins of the user are kept.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) (User, error) {
	if actorID != "" && actorID == id {
		return User{}, ErrCannotDeleteSelf
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// GetUser returns a user or ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// ListUsers returns every user sorted by name.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Authenticate checks credentials. When role is non-empty the account must hold it.
// All mismatches collapse to ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string, role Role) (User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return User{}, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if role != "" && u.Role != role {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup email: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) checkEmail(verr *ValidationError, email string) {
	if email == "" {
		verr.add("email", "is required")
		return
	}
	if err := s.validate.Var(email, "email"); err != nil {
		verr.add("email", "must be a valid email address")
	}
}

func checkRole(verr *ValidationError, role Role) {
	if role == "" {
		verr.add("role", "is required")
		return
	}
	if !role.Valid() {
		verr.add("role", "must be one of admin, teacher, student")
	}
}
