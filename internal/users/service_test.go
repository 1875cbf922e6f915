package users

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sekolah-suite/sekolah/internal/shared"
	_ "github.com/sekolah-suite/sekolah/internal/testing/guard"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  error
	names []string
}

func (m *recordingMailer) EnqueueWelcome(_ context.Context, email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, email)
	m.names = append(m.names, name)
	return nil
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:     "Budi.Santoso@School.com",
		Username:  "BudiSantoso",
		Password:  "SecurePass123!",
		Role:      "teacher",
		FirstName: "Budi",
		LastName:  "Santoso",
		Phone:     "+62 812 0000 0000",
	}
}

func TestRegister(t *testing.T) {
	repo := NewMemoryRepository()
	mailer := &recordingMailer{}
	svc := NewService(repo, mailer)

	user, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "budi.santoso@school.com", user.Email)
	require.Equal(t, "budisantoso", user.Username)
	require.True(t, user.IsActive)
	require.NotEqual(t, "SecurePass123!", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("SecurePass123!")))
	require.Equal(t, []string{"budi.santoso@school.com"}, mailer.sent)
}

func TestRegisterMailerFailureDoesNotBlock(t *testing.T) {
	repo := NewMemoryRepository()
	mailer := &recordingMailer{fail: shared.ErrBackendUnavailable}
	svc := NewService(repo, mailer)

	_, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err, "welcome mail is best-effort")
}

func TestRegisterInvalidRole(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)

	input := validInput()
	input.Role = "janitor"
	_, err := svc.Register(context.Background(), input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid role")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	// Same address in a different case resolves to the same account.
	input := validInput()
	input.Email = "BUDI.SANTOSO@SCHOOL.COM"
	input.Username = "anotherbudi"
	_, err = svc.Register(ctx, input)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	input := validInput()
	input.Email = "budi.2@school.com"
	_, err = svc.Register(ctx, input)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     string
	}{
		{"ok", "SecurePass123!", ""},
		{"too short", "Ab1!", "at least 8 characters"},
		{"no uppercase", "securepass123!", "uppercase"},
		{"no digit", "SecurePass!", "number"},
		{"no special", "SecurePass123", "special"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNormalizeIdentifier(t *testing.T) {
	got, err := NormalizeIdentifier("  Admin@School.com ")
	require.NoError(t, err)
	require.Equal(t, "admin@school.com", got)

	_, err = NormalizeIdentifier("has space@school.com")
	require.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, "Budi", "Hartono", " +62 813 1111 1111 ")
	require.NoError(t, err)
	require.Equal(t, "Hartono", updated.LastName)
	require.Equal(t, "+62 813 1111 1111", updated.Phone)

	_, err = svc.UpdateProfile(ctx, "missing-id", "A", "B", "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetActive(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(ctx, user.ID, false))
	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestAuthAdapter(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	adapter := NewAuthAdapter(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	// Lookup normalizes before matching, so mixed-case logins resolve.
	record, err := adapter.FindByIdentifier(ctx, "BUDI.SANTOSO@school.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, record.ID)
	require.Equal(t, "teacher", record.Role)
	require.True(t, record.IsActive)

	_, err = adapter.FindByIdentifier(ctx, "nobody@school.com")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
