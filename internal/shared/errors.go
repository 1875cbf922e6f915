package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled indicates a deactivated account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrTwoFactorRequired indicates a missing TOTP code on a 2FA-enabled account.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrTokenExpired indicates an otherwise valid token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid indicates a malformed token or bad signature.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenRevoked indicates a token present in the revocation set.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrBackendUnavailable indicates a user or revocation store outage.
	// Kept distinct from credential failures so callers never report an
	// outage as a wrong password.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ErrTokenReused indicates replay of an already rotated refresh token.
// It is a refinement of ErrTokenRevoked: errors.Is matches both.
var ErrTokenReused = fmt.Errorf("refresh token reused: %w", ErrTokenRevoked)
