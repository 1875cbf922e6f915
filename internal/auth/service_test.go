package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sekolah-suite/sekolah/internal/shared"
	_ "github.com/sekolah-suite/sekolah/internal/testing/guard"
)

type stubUserStore struct {
	record *UserRecord
	err    error

	mu               sync.Mutex
	lastLogin        time.Time
	savedSecret      string
	twoFactorEnabled bool
}

func (s *stubUserStore) FindByIdentifier(_ context.Context, _ string) (*UserRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.record == nil {
		return nil, shared.ErrNotFound
	}
	return s.record, nil
}

func (s *stubUserStore) TouchLastLogin(_ context.Context, _ string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin = at
	return nil
}

func (s *stubUserStore) SaveTwoFactorSecret(_ context.Context, _ string, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedSecret = secret
	return nil
}

func (s *stubUserStore) ActivateTwoFactor(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.twoFactorEnabled = true
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, repo Repository) (*Service, *MemoryRevocationStore) {
	t.Helper()
	tokens, err := NewTokenManager("test-secret", "sekolah", 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	store := NewMemoryRevocationStore()
	return NewService(repo, tokens, store, nil), store
}

func activeUser(t *testing.T) *UserRecord {
	t.Helper()
	return &UserRecord{
		ID:           "u-1",
		Email:        "admin@school.com",
		Role:         "superadmin",
		PasswordHash: hashPassword(t, "SecurePass123!"),
		IsActive:     true,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := &stubUserStore{record: activeUser(t)}
	svc, _ := newTestService(t, repo)

	p, err := svc.Authenticate(context.Background(), "admin@school.com", "SecurePass123!", "")
	require.NoError(t, err)
	require.Equal(t, "u-1", p.UserID)
	require.Equal(t, "superadmin", p.Role)
	require.False(t, repo.lastLogin.IsZero(), "successful login must stamp last_login")
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := &stubUserStore{record: activeUser(t)}
	svc, _ := newTestService(t, repo)

	_, err := svc.Authenticate(context.Background(), "admin@school.com", "WrongPass123!", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownIdentifier(t *testing.T) {
	repo := &stubUserStore{}
	svc, _ := newTestService(t, repo)

	_, err := svc.Authenticate(context.Background(), "nobody@school.com", "SecurePass123!", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateBackendUnavailable(t *testing.T) {
	repo := &stubUserStore{err: fmt.Errorf("%w: connection refused", shared.ErrBackendUnavailable)}
	svc, _ := newTestService(t, repo)

	// An outage must not be reported as a wrong password.
	_, err := svc.Authenticate(context.Background(), "admin@school.com", "SecurePass123!", "")
	require.ErrorIs(t, err, shared.ErrBackendUnavailable)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	record := activeUser(t)
	record.IsActive = false
	svc, _ := newTestService(t, &stubUserStore{record: record})

	// The password is correct; the distinct error tells the client the
	// account, not the credentials, is the problem.
	_, err := svc.Authenticate(context.Background(), "admin@school.com", "SecurePass123!", "")
	require.ErrorIs(t, err, shared.ErrAccountDisabled)
}

func TestAuthenticateTwoFactor(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Sekolah Suite", AccountName: "admin@school.com"})
	require.NoError(t, err)

	record := activeUser(t)
	record.TwoFactorEnabled = true
	record.TwoFactorSecret = key.Secret()
	svc, _ := newTestService(t, &stubUserStore{record: record})
	ctx := context.Background()

	_, err = svc.Authenticate(ctx, "admin@school.com", "SecurePass123!", "")
	require.ErrorIs(t, err, shared.ErrTwoFactorRequired)

	_, err = svc.Authenticate(ctx, "admin@school.com", "SecurePass123!", "000000")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	p, err := svc.Authenticate(ctx, "admin@school.com", "SecurePass123!", code)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.UserID)
}

func TestEnableAndConfirmTwoFactor(t *testing.T) {
	record := activeUser(t)
	repo := &stubUserStore{record: record}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	enrollment, err := svc.EnableTwoFactor(ctx, "u-1", "admin@school.com")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)
	require.Contains(t, enrollment.ProvisioningURI, "otpauth://")
	require.Equal(t, enrollment.Secret, repo.savedSecret)

	// Confirmation requires a valid first code against the pending secret.
	record.TwoFactorSecret = enrollment.Secret
	err = svc.ConfirmTwoFactor(ctx, "u-1", "admin@school.com", "000000")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.False(t, repo.twoFactorEnabled)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmTwoFactor(ctx, "u-1", "admin@school.com", code))
	require.True(t, repo.twoFactorEnabled)
}

func TestVerifyAccessAfterRevoke(t *testing.T) {
	svc, _ := newTestService(t, &stubUserStore{record: activeUser(t)})
	ctx := context.Background()

	pair, err := svc.IssueTokens(shared.Principal{UserID: "u-1", Role: "superadmin"})
	require.NoError(t, err)

	p, err := svc.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.UserID)

	require.NoError(t, svc.Revoke(ctx, pair.AccessToken))

	_, err = svc.VerifyAccess(ctx, pair.AccessToken)
	require.ErrorIs(t, err, shared.ErrTokenRevoked)

	// Revoking again is a no-op, not an error.
	require.NoError(t, svc.Revoke(ctx, pair.AccessToken))
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tokens, err := NewTokenManager("test-secret", "sekolah", 30*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	tokens = tokens.WithClock(func() time.Time { return now })
	store := NewMemoryRevocationStore()
	svc := NewService(&stubUserStore{}, tokens, store, nil)

	pair, err := svc.IssueTokens(shared.Principal{UserID: "u-1", Role: "admin"})
	require.NoError(t, err)

	now = now.Add(8 * 24 * time.Hour)
	require.NoError(t, svc.Revoke(context.Background(), pair.RefreshToken))
	require.Equal(t, 0, store.Len())
}

func TestRefreshRotation(t *testing.T) {
	svc, _ := newTestService(t, &stubUserStore{})
	ctx := context.Background()

	pair, err := svc.IssueTokens(shared.Principal{UserID: "u-1", Role: "teacher"})
	require.NoError(t, err)

	next, p, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", p.UserID)
	require.Equal(t, "teacher", p.Role)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The rotated-out token is single-use; presenting it again is replay.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, shared.ErrTokenReused)
	require.ErrorIs(t, err, shared.ErrTokenRevoked)

	// The replacement still works.
	_, _, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t, &stubUserStore{})

	pair, err := svc.IssueTokens(shared.Principal{UserID: "u-1", Role: "teacher"})
	require.NoError(t, err)

	_, _, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, shared.ErrTokenInvalid)
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService(t, &stubUserStore{})
	ctx := context.Background()

	pair, err := svc.IssueTokens(shared.Principal{UserID: "u-1", Role: "teacher"})
	require.NoError(t, err)

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, shared.ErrTokenReused)
	}
	require.Equal(t, 1, successes, "exactly one concurrent refresh may win")
}
