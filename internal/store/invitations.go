package store

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"

	"marketready/internal/model"
)

const inviteValidity = 7 * 24 * time.Hour

// Member is a row of the members lookup, the shape consumers of the old
// get_account_members procedure expect.
type Member struct {
	UserID string
	Email  string
	Role   string
}

// GetAccountMembers lists the members of the account identified by slug,
// joining memberships against user emails.
func (s *Store) GetAccountMembers(ctx context.Context, slug string) ([]Member, error) {
	account, err := s.FindAccountBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var members []Member
	err = s.db.WithContext(ctx).
		Table("memberships").
		Select("memberships.user_id, users.email, memberships.role").
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.account_id = ?", account.ID).
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// InviteInput is one requested invitation in a batch.
type InviteInput struct {
	Email string
	Role  string
}

// AddInvitationsToAccount inserts the whole batch in one transaction with
// server-assigned tokens and a 7-day expiry. An email that already holds a
// pending invitation for the account aborts every row.
func (s *Store) AddInvitationsToAccount(ctx context.Context, slug string, invites []InviteInput, invitedBy string) ([]model.Invitation, error) {
	account, err := s.FindAccountBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rows := make([]model.Invitation, 0, len(invites))
	for _, in := range invites {
		rows = append(rows, model.Invitation{
			AccountID:   account.ID,
			Email:       in.Email,
			Role:        in.Role,
			InviteToken: ksuid.New().String(),
			InvitedBy:   invitedBy,
			ExpiresAt:   now.Add(inviteValidity),
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			var existing int64
			if err := tx.Model(&model.Invitation{}).
				Where("account_id = ? AND email = ?", rows[i].AccountID, rows[i].Email).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrDuplicateInvite
			}
			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) FindInvitationByID(ctx context.Context, id uint) (*model.Invitation, error) {
	var invitation model.Invitation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (s *Store) DeleteInvitation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Invitation{}, id).Error
}

func (s *Store) UpdateInvitationRole(ctx context.Context, id uint, role string) error {
	return s.db.WithContext(ctx).Model(&model.Invitation{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// RenewInvitation sets expires_at to now+7 days UTC, regardless of the
// invitation's prior expiry.
func (s *Store) RenewInvitation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&model.Invitation{}).
		Where("id = ?", id).
		Update("expires_at", s.now().UTC().Add(inviteValidity)).Error
}

func (s *Store) ListInvitations(ctx context.Context, accountID string) ([]model.Invitation, error) {
	var rows []model.Invitation
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *Store) CountInvitations(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Invitation{}).Count(&n).Error
	return n, err
}

// PurgeExpiredInvitations deletes rows past their expiry and reports how
// many were removed.
func (s *Store) PurgeExpiredInvitations(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now().UTC()).
		Delete(&model.Invitation{})
	return res.RowsAffected, res.Error
}

// AcceptInvitation atomically validates the token and creates the
// membership; the consumed invitation row is deleted in the same
// transaction. Privileged: it bypasses per-account scoping.
func (a *AdminStore) AcceptInvitation(ctx context.Context, token, userID string) (*model.Membership, error) {
	var membership *model.Membership
	err := a.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitation model.Invitation
		err := tx.Where("invite_token = ?", token).First(&invitation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		if err != nil {
			return err
		}
		if invitation.Expired(a.store.now().UTC()) {
			return ErrInvitationExpired
		}

		membership = &model.Membership{
			AccountID: invitation.AccountID,
			UserID:    userID,
			Role:      invitation.Role,
		}
		if err := tx.Create(membership).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Invitation{}, invitation.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}
