package auth

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp/totp"

	"marketready/internal/model"
	"marketready/internal/store"
)

var ErrInvalidCode = errors.New("invalid verification code")

// MFA manages TOTP factor enrollment and verification.
type MFA struct {
	Store  *store.Store
	Issuer string
	Now    func() time.Time
}

func NewMFA(st *store.Store, issuer string) *MFA {
	return &MFA{Store: st, Issuer: issuer, Now: time.Now}
}

// Enrollment is the result of enrolling a new factor: the stored row plus
// the provisioning material the authenticator app needs.
type Enrollment struct {
	Factor          *model.MFAFactor
	ProvisioningURI string
	QRCodePNG       []byte
}

// EnrollFactor creates an unverified TOTP factor for the user and renders
// the standard otpauth provisioning QR code.
func (m *MFA) EnrollFactor(ctx context.Context, userID, accountName, friendlyName string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.Issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}

	factor := &model.MFAFactor{
		UserID:       userID,
		FriendlyName: friendlyName,
		Secret:       key.Secret(),
	}
	if err := m.Store.CreateFactor(ctx, factor); err != nil {
		return nil, err
	}

	code, err := qr.Encode(key.URL(), qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	code, err = barcode.Scale(code, 256, 256)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, err
	}

	return &Enrollment{
		Factor:          factor,
		ProvisioningURI: key.URL(),
		QRCodePNG:       buf.Bytes(),
	}, nil
}

// ChallengeAndVerify performs a one-shot verification of the given code
// against the factor's secret. There is no retry or backoff here; a failed
// attempt simply returns ErrInvalidCode and the caller submits again.
func (m *MFA) ChallengeAndVerify(ctx context.Context, userID, factorID, code string) error {
	factor, err := m.Store.FindFactor(ctx, userID, factorID)
	if err != nil {
		return err
	}

	if !totp.Validate(code, factor.Secret) {
		return ErrInvalidCode
	}

	if !factor.Verified {
		if err := m.Store.MarkFactorVerified(ctx, factor.ID); err != nil {
			return err
		}
	}
	return nil
}

// RequiresMFA reports whether the session needs an MFA step: the user has
// at least one verified factor and the current session has not satisfied a
// challenge.
func (m *MFA) RequiresMFA(ctx context.Context, claims *Claims) (bool, error) {
	if claims.AAL == AAL2 {
		return false, nil
	}
	factors, err := m.Store.ListVerifiedFactors(ctx, claims.UserID)
	if err != nil {
		return false, err
	}
	return len(factors) > 0, nil
}
