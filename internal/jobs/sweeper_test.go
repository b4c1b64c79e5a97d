package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketready/internal/model"
	"marketready/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
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
	return st
}

func TestSweeper_RemovesExpiredRows(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	owner := &model.User{Email: "owner@example.com", PasswordHash: "x"}
	if err := st.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	slug := "acme"
	team := &model.Account{Name: "Acme", Slug: &slug, PrimaryOwnerUserID: owner.ID}
	if err := st.CreateAccount(ctx, team); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	past := time.Now().Add(-30 * 24 * time.Hour)
	seeded := st.WithNow(func() time.Time { return past })
	if _, err := seeded.AddInvitationsToAccount(ctx, "acme", []store.InviteInput{
		{Email: "old@example.com", Role: model.RoleMember},
	}, owner.ID); err != nil {
		t.Fatalf("AddInvitationsToAccount: %v", err)
	}
	if _, err := seeded.CreateNonce(ctx, "password-reset", nil, nil, time.Minute); err != nil {
		t.Fatalf("CreateNonce: %v", err)
	}

	if _, err := st.AddInvitationsToAccount(ctx, "acme", []store.InviteInput{
		{Email: "fresh@example.com", Role: model.RoleMember},
	}, owner.ID); err != nil {
		t.Fatalf("AddInvitationsToAccount: %v", err)
	}

	NewSweeper(st, zap.NewNop()).Run(ctx)

	rows, err := st.ListInvitations(ctx, team.ID)
	if err != nil {
		t.Fatalf("ListInvitations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 surviving invitation, got %d", len(rows))
	}
	if rows[0].Email != "fresh@example.com" {
		t.Fatalf("wrong surviving invitation: %s", rows[0].Email)
	}
}
