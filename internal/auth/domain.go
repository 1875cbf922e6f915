package auth

import (
	"context"
	"time"
)

// UserRecord is the credential view of a user account, as exposed by the
// user store. The full profile lives in the users module.
type UserRecord struct {
	ID               string
	Email            string
	Role             string
	PasswordHash     string
	IsActive         bool
	TwoFactorEnabled bool
	TwoFactorSecret  string
}

// Repository defines the user-store operations authentication depends on.
type Repository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*UserRecord, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SaveTwoFactorSecret(ctx context.Context, id, secret string) error
	ActivateTwoFactor(ctx context.Context, id string) error
}
