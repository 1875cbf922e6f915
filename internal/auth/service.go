package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

// Service is the credential and token authority: it validates login
// credentials, mints and rotates token pairs, and maintains the revocation
// set for logged-out tokens.
type Service struct {
	repo        Repository
	tokens      *TokenManager
	revocations RevocationStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, tokens *TokenManager, revocations RevocationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		now:         time.Now,
	}
}

// Authenticate validates identifier/secret credentials and returns the
// principal. Unknown identifiers and wrong passwords collapse into
// ErrInvalidCredentials; store outages surface as ErrBackendUnavailable so
// clients do not mistake an outage for a wrong password.
func (s *Service) Authenticate(ctx context.Context, identifier, secret, totpCode string) (shared.Principal, error) {
	record, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrBackendUnavailable) {
			return shared.Principal{}, err
		}
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(secret)); err != nil {
		return shared.Principal{}, shared.ErrInvalidCredentials
	}
	if !record.IsActive {
		return shared.Principal{}, shared.ErrAccountDisabled
	}
	if record.TwoFactorEnabled {
		if totpCode == "" {
			return shared.Principal{}, shared.ErrTwoFactorRequired
		}
		if !validateTOTP(record.TwoFactorSecret, totpCode) {
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
	}

	if err := s.repo.TouchLastLogin(ctx, record.ID, s.now().UTC()); err != nil {
		s.logger.Warn("touch last login", slog.String("user_id", record.ID), slog.Any("error", err))
	}
	return shared.Principal{UserID: record.ID, Role: record.Role}, nil
}

// IssueTokens mints an access/refresh pair for an authenticated principal.
func (s *Service) IssueTokens(p shared.Principal) (TokenPair, error) {
	return s.tokens.IssuePair(p)
}

// VerifyAccess validates an access token and rebuilds the principal.
// A token is valid iff the signature verifies, it is not expired, and its
// identifier is absent from the revocation set.
func (s *Service) VerifyAccess(ctx context.Context, raw string) (shared.Principal, error) {
	claims, err := s.tokens.Verify(raw, TokenTypeAccess)
	if err != nil {
		return shared.Principal{}, err
	}
	revoked, err := s.revocations.Contains(ctx, claims.ID)
	if err != nil {
		return shared.Principal{}, err
	}
	if revoked {
		return shared.Principal{}, shared.ErrTokenRevoked
	}
	return shared.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// Refresh exchanges a refresh token for a new pair, revoking the presented
// token. Rotation is single-use: the revocation insert is the atomic
// check-and-revoke, so concurrent refreshes of one token yield exactly one
// new pair and ErrTokenReused for the rest.
func (s *Service) Refresh(ctx context.Context, raw string) (TokenPair, shared.Principal, error) {
	claims, err := s.tokens.Verify(raw, TokenTypeRefresh)
	if err != nil {
		return TokenPair{}, shared.Principal{}, err
	}

	inserted, err := s.revocations.InsertIfAbsent(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return TokenPair{}, shared.Principal{}, err
	}
	if !inserted {
		s.logger.Warn("refresh token replay detected", slog.String("user_id", claims.UserID))
		return TokenPair{}, shared.Principal{}, shared.ErrTokenReused
	}

	principal := shared.Principal{UserID: claims.UserID, Role: claims.Role}
	pair, err := s.tokens.IssuePair(principal)
	if err != nil {
		return TokenPair{}, shared.Principal{}, err
	}
	return pair, principal, nil
}

// Revoke adds the token's identifier to the revocation set with an expiry
// equal to the token's own, keeping the set growth bounded. Revoking an
// expired token is a no-op; revoking twice is not an error.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	claims, err := s.tokens.Decode(raw)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) {
			return nil
		}
		return err
	}
	_, err = s.revocations.InsertIfAbsent(ctx, claims.ID, claims.ExpiresAt.Time)
	return err
}
