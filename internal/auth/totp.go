package auth

import (
	"context"

	"github.com/pquerna/otp/totp"

	"github.com/sekolah-suite/sekolah/internal/shared"
)

const totpIssuer = "Sekolah Suite"

// TwoFactorEnrollment carries the data a client needs to finish TOTP setup.
type TwoFactorEnrollment struct {
	Secret          string
	ProvisioningURI string
}

// EnableTwoFactor generates a TOTP secret for the user and stores it in a
// pending state. The account keeps logging in without a code until the
// secret is confirmed via ConfirmTwoFactor.
func (s *Service) EnableTwoFactor(ctx context.Context, userID, email string) (TwoFactorEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if err != nil {
		return TwoFactorEnrollment{}, err
	}
	if err := s.repo.SaveTwoFactorSecret(ctx, userID, key.Secret()); err != nil {
		return TwoFactorEnrollment{}, err
	}
	return TwoFactorEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ConfirmTwoFactor validates the first code against the pending secret and
// switches the account to 2FA-required logins.
func (s *Service) ConfirmTwoFactor(ctx context.Context, userID, identifier, code string) error {
	record, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	if record.ID != userID || record.TwoFactorSecret == "" {
		return shared.ErrNotFound
	}
	if !validateTOTP(record.TwoFactorSecret, code) {
		return shared.ErrInvalidCredentials
	}
	return s.repo.ActivateTwoFactor(ctx, userID)
}

func validateTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
