package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketready/internal/model"
	"marketready/internal/store"
)

func newMFA(t *testing.T) (*MFA, *model.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := &model.User{Email: "mfa@example.com", PasswordHash: "x"}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return NewMFA(st, "MarketReady"), user
}

func TestEnrollAndVerifyFactor(t *testing.T) {
	mfa, user := newMFA(t)
	ctx := context.Background()

	enr, err := mfa.EnrollFactor(ctx, user.ID, user.Email, "Phone")
	if err != nil {
		t.Fatalf("EnrollFactor: %v", err)
	}
	if enr.Factor.Verified {
		t.Fatal("new factor must start unverified")
	}
	if len(enr.QRCodePNG) == 0 || enr.ProvisioningURI == "" {
		t.Fatal("expected provisioning material")
	}

	code, err := totp.GenerateCode(enr.Factor.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if err := mfa.ChallengeAndVerify(ctx, user.ID, enr.Factor.ID, code); err != nil {
		t.Fatalf("ChallengeAndVerify: %v", err)
	}

	factors, err := mfa.Store.ListVerifiedFactors(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListVerifiedFactors: %v", err)
	}
	if len(factors) != 1 {
		t.Fatalf("expected factor verified after first success, got %d", len(factors))
	}
}

func TestChallengeAndVerify_BadCode(t *testing.T) {
	mfa, user := newMFA(t)
	ctx := context.Background()

	enr, err := mfa.EnrollFactor(ctx, user.ID, user.Email, "Phone")
	if err != nil {
		t.Fatalf("EnrollFactor: %v", err)
	}

	if err := mfa.ChallengeAndVerify(ctx, user.ID, enr.Factor.ID, "000000"); err != ErrInvalidCode {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestChallengeAndVerify_UnknownFactor(t *testing.T) {
	mfa, user := newMFA(t)
	if err := mfa.ChallengeAndVerify(context.Background(), user.ID, "missing", "123456"); err != store.ErrFactorNotFound {
		t.Fatalf("expected ErrFactorNotFound, got %v", err)
	}
}

func TestRequiresMFA(t *testing.T) {
	mfa, user := newMFA(t)
	ctx := context.Background()

	claims := &Claims{UserID: user.ID, AAL: AAL1}
	required, err := mfa.RequiresMFA(ctx, claims)
	if err != nil {
		t.Fatalf("RequiresMFA: %v", err)
	}
	if required {
		t.Fatal("no verified factors: MFA must not be required")
	}

	enr, err := mfa.EnrollFactor(ctx, user.ID, user.Email, "Phone")
	if err != nil {
		t.Fatalf("EnrollFactor: %v", err)
	}
	code, err := totp.GenerateCode(enr.Factor.Secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if err := mfa.ChallengeAndVerify(ctx, user.ID, enr.Factor.ID, code); err != nil {
		t.Fatalf("ChallengeAndVerify: %v", err)
	}

	required, err = mfa.RequiresMFA(ctx, claims)
	if err != nil {
		t.Fatalf("RequiresMFA: %v", err)
	}
	if !required {
		t.Fatal("verified factor on aal1 session: MFA must be required")
	}

	required, err = mfa.RequiresMFA(ctx, &Claims{UserID: user.ID, AAL: AAL2})
	if err != nil {
		t.Fatalf("RequiresMFA: %v", err)
	}
	if required {
		t.Fatal("aal2 session must not require MFA again")
	}
}
