package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/perfeval/internal/domain/user"
	"github.com/geocoder89/perfeval/internal/security"
)

var ErrUsernameTaken = errors.New("username already exists")

// UserStore is the subset of the users repository the service needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) []user.User
	ListByRole(ctx context.Context, role string) []user.User
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) error
	Update(ctx context.Context, id string, p user.Patch) error
}

type Service struct {
	users  UserStore
	log    *slog.Logger
	hash   func(plain string) (string, error)
	verify func(plain, hash string) (bool, error)
}

func NewService(users UserStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:  users,
		log:    log,
		hash:   security.HashPassword,
		verify: security.VerifyPassword,
	}
}

// Authenticate checks the password of the first user with username and
// returns the profile on success. The stored hash is never returned.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*user.Profile, bool) {
	matches := s.users.FindByUsername(ctx, username)
	if len(matches) == 0 {
		s.log.WarnContext(ctx, "authentication failed: unknown user", "username", username)
		return nil, false
	}

	u := matches[0]
	if !s.checkPassword(ctx, u, password) {
		s.log.WarnContext(ctx, "authentication failed: invalid password", "username", username)
		return nil, false
	}

	s.log.InfoContext(ctx, "user authenticated", "username", username, "user_id", u.ID)
	p := u.Profile()
	return &p, true
}

// CreateUser validates req, rejects a taken username and stores a new active
// user with a bcrypt hash. It returns the new id.
func (s *Service) CreateUser(ctx context.Context, req user.CreateRequest) (string, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	if len(s.users.FindByUsername(ctx, req.Username)) > 0 {
		s.log.WarnContext(ctx, "user creation failed: username exists", "username", req.Username)
		return "", ErrUsernameTaken
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u := user.New(req, hash)
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}

	s.log.InfoContext(ctx, "user created", "username", u.Username, "role", u.Role, "user_id", u.ID)
	return u.ID, nil
}

// ChangePassword replaces the hash only when oldPassword verifies.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) bool {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false
	}

	if !s.checkPassword(ctx, u, oldPassword) {
		s.log.WarnContext(ctx, "password change failed: incorrect old password", "user_id", id)
		return false
	}

	return s.setPassword(ctx, id, newPassword)
}

// ResetPassword replaces the hash unconditionally. Callers authorize.
func (s *Service) ResetPassword(ctx context.Context, id, newPassword string) bool {
	return s.setPassword(ctx, id, newPassword)
}

// Admins lists every admin account in storage order.
func (s *Service) Admins(ctx context.Context) []user.Profile {
	admins := s.users.ListByRole(ctx, user.RoleAdmin)
	out := make([]user.Profile, 0, len(admins))
	for _, a := range admins {
		out = append(out, a.Profile())
	}
	return out
}

// EnsureAdmin creates an admin from req when no admin exists yet. With an
// admin already present it returns that admin's id and created=false.
func (s *Service) EnsureAdmin(ctx context.Context, req user.CreateRequest) (string, bool, error) {
	if admins := s.Admins(ctx); len(admins) > 0 {
		return admins[0].ID, false, nil
	}

	req.Role = user.RoleAdmin
	id, err := s.CreateUser(ctx, req)
	if err != nil {
		return "", false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return id, true, nil
}

func (s *Service) setPassword(ctx context.Context, id, password string) bool {
	hash, err := s.hash(password)
	if err != nil {
		s.log.ErrorContext(ctx, "hash password", "user_id", id, "err", err)
		return false
	}

	if err := s.users.Update(ctx, id, user.Patch{PasswordHash: &hash}); err != nil {
		s.log.WarnContext(ctx, "password update failed", "user_id", id, "err", err)
		return false
	}
	return true
}

func (s *Service) checkPassword(ctx context.Context, u user.User, password string) bool {
	ok, err := s.verify(password, u.PasswordHash)
	if err != nil {
		s.log.ErrorContext(ctx, "password verification error", "user_id", u.ID, "err", err)
	}
	return ok
}
