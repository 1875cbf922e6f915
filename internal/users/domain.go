package users

import "time"

// User represents a user account. PasswordHash and TwoFactorSecret never
// leave the service layer.
type User struct {
	ID               string
	Email            string
	Username         string
	PasswordHash     string
	Role             string
	FirstName        string
	LastName         string
	Phone            string
	IsActive         bool
	TwoFactorEnabled bool
	TwoFactorSecret  string
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
