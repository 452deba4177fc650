package user

import (
	"strings"
	"time"

	"github.com/geocoder89/perfeval/internal/domain"
	"github.com/geocoder89/perfeval/internal/validation"
)

const (
	RoleAdmin     = "admin"
	RoleEvaluator = "evaluator"
	RoleEmployee  = "employee"
)

var Roles = []string{RoleAdmin, RoleEvaluator, RoleEmployee}

const IDPrefix = "u-"

// User is the stored shape. PasswordHash never leaves the auth layer; use
// Profile for anything shown to callers.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	CreatedAt    string `json:"created_at"`
	Active       bool   `json:"active"`
}

type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	Active    bool   `json:"active"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		Active:    u.Active,
	}
}

// DisplayName is the full name, or the username when no full name is set.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

type CreateRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin evaluator employee"`
	FullName string `json:"full_name"`
	Email    string `json:"email" validate:"required,email"`
}

// Normalize trims every field except the password.
func (r CreateRequest) Normalize() CreateRequest {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.TrimSpace(r.Role)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

func (r CreateRequest) Validate() error {
	return validation.Struct(r)
}

// New builds an active user from an already validated request.
func New(r CreateRequest, passwordHash string) User {
	return newAt(r, passwordHash, time.Now())
}

func newAt(r CreateRequest, passwordHash string, now time.Time) User {
	return User{
		ID:           domain.NewID(IDPrefix),
		Username:     r.Username,
		PasswordHash: passwordHash,
		Role:         r.Role,
		FullName:     r.FullName,
		Email:        r.Email,
		CreatedAt:    domain.Timestamp(now),
		Active:       true,
	}
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	PasswordHash *string `json:"password_hash,omitempty"`
	Role         *string `json:"role,omitempty" validate:"omitempty,oneof=admin evaluator employee"`
	FullName     *string `json:"full_name,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Active       *bool   `json:"active,omitempty"`
}

func (p Patch) Validate() error {
	return validation.Struct(p)
}

func (p Patch) Empty() bool {
	return p.PasswordHash == nil && p.Role == nil && p.FullName == nil && p.Email == nil && p.Active == nil
}

func ValidPassword(password string) error {
	if len(password) < 8 {
		return validation.New(validation.Field("password", "min", "8"))
	}
	return nil
}
