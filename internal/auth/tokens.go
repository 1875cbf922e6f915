package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

// TokenType distinguishes access from refresh tokens inside claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the only supported JWT claims shape for this service. Both
// token kinds carry a uuid jti so revocation can key on the identifier
// instead of the raw token.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}

// TokenPair is the result of a login or a refresh rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenManager mints and verifies signed tokens. Verification is a pure
// computation; revocation lookups happen in the service layer.
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager validates the signing configuration.
func NewTokenManager(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT_SECRET is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}
	return &TokenManager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source, for tests.
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// IssuePair mints an access/refresh pair for the principal. Every issued
// token traces back to exactly one login or refresh event; no token is
// stored server-side.
func (m *TokenManager) IssuePair(p shared.Principal) (TokenPair, error) {
	now := m.now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access, err := m.issue(now, accessExp, TokenTypeAccess, p)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(now, refreshExp, TokenTypeRefresh, p)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature, expiry, and the expected token type. It returns
// shared.ErrTokenExpired for stale tokens and shared.ErrTokenInvalid for
// anything malformed or signed with the wrong key.
func (m *TokenManager) Verify(raw string, expected TokenType) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	_, err := parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, shared.ErrTokenExpired
		}
		return Claims{}, shared.ErrTokenInvalid
	}

	if m.issuer != "" && claims.Issuer != m.issuer {
		return Claims{}, shared.ErrTokenInvalid
	}
	if claims.TokenType != expected {
		return Claims{}, shared.ErrTokenInvalid
	}
	if claims.UserID == "" || claims.ID == "" {
		return Claims{}, shared.ErrTokenInvalid
	}
	if expected == TokenTypeAccess && claims.Role == "" {
		return Claims{}, shared.ErrTokenInvalid
	}
	return claims, nil
}

// Decode parses claims without failing on expiry. Used by revoke, where an
// expired token simply needs no revocation entry.
func (m *TokenManager) Decode(raw string) (Claims, error) {
	claims, err := m.Verify(raw, TokenTypeAccess)
	if err == nil {
		return claims, nil
	}
	claims, refreshErr := m.Verify(raw, TokenTypeRefresh)
	if refreshErr == nil {
		return claims, nil
	}
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(refreshErr, shared.ErrTokenExpired) {
		return Claims{}, shared.ErrTokenExpired
	}
	return Claims{}, shared.ErrTokenInvalid
}

func (m *TokenManager) issue(now, expiresAt time.Time, tokenType TokenType, p shared.Principal) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		UserID:    p.UserID,
		Role:      p.Role,
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
