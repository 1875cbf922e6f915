package httpx

import (
	"errors"
	"net/http"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

// Sentinel errors for the handler layer.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Token faults and credential failures map to 401, a disabled account to
// 403, backend outages to 503 so clients can tell them apart from a
// rejected login.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrTokenReused):
		Problem(w, http.StatusUnauthorized, "Token Reused", "refresh token has already been exchanged")
	case errors.Is(err, shared.ErrTokenRevoked):
		Problem(w, http.StatusUnauthorized, "Token Revoked", "token has been revoked")
	case errors.Is(err, shared.ErrTokenExpired):
		Problem(w, http.StatusUnauthorized, "Token Expired", "token has expired")
	case errors.Is(err, shared.ErrTokenInvalid):
		Problem(w, http.StatusUnauthorized, "Token Invalid", "token could not be validated")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "identifier or password is incorrect")
	case errors.Is(err, shared.ErrTwoFactorRequired):
		Problem(w, http.StatusBadRequest, "Two-Factor Required", "totp_code is required for this account")
	case errors.Is(err, shared.ErrAccountDisabled):
		Problem(w, http.StatusForbidden, "Account Disabled", "account is deactivated")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, shared.ErrBackendUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Backend Unavailable", "a dependency is unavailable, retry later")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
