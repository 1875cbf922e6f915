package users

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/secure/precis"

	"github.com/sekolah-suite/sekolah/internal/auth"
	"github.com/sekolah-suite/sekolah/internal/rbac"
	"github.com/sekolah-suite/sekolah/internal/shared"
)

const bcryptCost = 12

// Mailer enqueues transactional mail; nil disables it.
type Mailer interface {
	EnqueueWelcome(ctx context.Context, email, name string) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	mailer Mailer
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, mailer Mailer) *Service {
	return &Service{repo: repo, mailer: mailer}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Phone     string
}

// Register creates a new account. The role must be one of the fixed role
// names and the password must meet the strength policy.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if !rbac.ValidRole(input.Role) {
		return nil, errors.New("users: invalid role")
	}
	if err := ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	email, err := NormalizeIdentifier(input.Email)
	if err != nil {
		return nil, err
	}
	username, err := NormalizeIdentifier(input.Username)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         input.Role,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	if s.mailer != nil {
		_ = s.mailer.EnqueueWelcome(ctx, user.Email, user.FirstName)
	}
	return user, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateProfile changes the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id, firstName, lastName, phone string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(firstName)
	user.LastName = strings.TrimSpace(lastName)
	user.Phone = strings.TrimSpace(phone)
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// SetActive toggles account activation.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// NormalizeIdentifier case-folds and validates a login identifier using the
// PRECIS UsernameCaseMapped profile, so "Admin@School.com" and
// "admin@school.com" resolve to the same account.
func NormalizeIdentifier(identifier string) (string, error) {
	normalized, err := precis.UsernameCaseMapped.String(strings.TrimSpace(identifier))
	if err != nil {
		return "", errors.New("users: invalid identifier")
	}
	return normalized, nil
}

// ValidatePassword enforces the password policy: at least 8 characters with
// an uppercase letter, a digit, and a special character.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("users: password must be at least 8 characters")
	}
	var hasUpper, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsDigit(c):
			hasDigit = true
		case strings.ContainsRune("!@#$%^&*()_+-=[]{}|;:,.<>?", c):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return errors.New("users: password must contain at least one uppercase letter")
	}
	if !hasDigit {
		return errors.New("users: password must contain at least one number")
	}
	if !hasSpecial {
		return errors.New("users: password must contain at least one special character")
	}
	return nil
}

// AuthAdapter exposes the repository as the credential store the auth
// module depends on.
type AuthAdapter struct {
	repo RepositoryPort
}

// NewAuthAdapter wraps a repository.
func NewAuthAdapter(repo RepositoryPort) *AuthAdapter {
	return &AuthAdapter{repo: repo}
}

// FindByIdentifier resolves a normalized identifier to a credential record.
func (a *AuthAdapter) FindByIdentifier(ctx context.Context, identifier string) (*auth.UserRecord, error) {
	normalized, err := NormalizeIdentifier(identifier)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	user, err := a.repo.FindByEmail(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return &auth.UserRecord{
		ID:               user.ID,
		Email:            user.Email,
		Role:             user.Role,
		PasswordHash:     user.PasswordHash,
		IsActive:         user.IsActive,
		TwoFactorEnabled: user.TwoFactorEnabled,
		TwoFactorSecret:  user.TwoFactorSecret,
	}, nil
}

// TouchLastLogin stamps the last successful login.
func (a *AuthAdapter) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return a.repo.TouchLastLogin(ctx, id, at)
}

// SaveTwoFactorSecret stores a pending TOTP secret.
func (a *AuthAdapter) SaveTwoFactorSecret(ctx context.Context, id, secret string) error {
	return a.repo.SaveTwoFactorSecret(ctx, id, secret)
}

// ActivateTwoFactor switches the account to 2FA-required logins.
func (a *AuthAdapter) ActivateTwoFactor(ctx context.Context, id string) error {
	return a.repo.ActivateTwoFactor(ctx, id)
}

var _ auth.Repository = (*AuthAdapter)(nil)
