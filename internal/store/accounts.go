package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketready/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// CreateUserWithPersonalAccount creates the user and their personal
// account in one transaction, so a user can never exist without exactly
// one personal account.
func (s *Store) CreateUserWithPersonalAccount(ctx context.Context, user *model.User, accountName string) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&model.Account{
			ID:                 user.ID,
			Name:               accountName,
			IsPersonalAccount:  true,
			PrimaryOwnerUserID: user.ID,
			Email:              user.Email,
		}).Error
	})
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAccount inserts the account. A personal account takes its owner's
// user ID as its own, so invitation rows can reference the inviter through
// the accounts table.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	if account.ID == "" {
		if account.IsPersonalAccount {
			account.ID = account.PrimaryOwnerUserID
		} else {
			account.ID = uuid.NewString()
		}
	}
	return s.db.WithContext(ctx).Create(account).Error
}

// CreateTeamWithOwner creates a team account and the founding owner
// membership in one transaction.
func (s *Store) CreateTeamWithOwner(ctx context.Context, account *model.Account, ownerID string) error {
	account.IsPersonalAccount = false
	account.PrimaryOwnerUserID = ownerID
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(&model.Membership{
			AccountID: account.ID,
			UserID:    ownerID,
			Role:      model.RoleOwner,
		}).Error
	})
}

func (s *Store) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Store) FindAccountBySlug(ctx context.Context, slug string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindPersonalAccount resolves the single personal account owned by a user.
func (s *Store) FindPersonalAccount(ctx context.Context, userID string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).
		Where("primary_owner_user_id = ? AND is_personal_account = ?", userID, true).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// MergePublicData merges the given keys into the personal account's
// PublicData bag. The merge is unstructured and last-write-wins; no schema
// is enforced at this layer.
func (s *Store) MergePublicData(ctx context.Context, userID string, data map[string]any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account model.Account
		err := tx.Where("primary_owner_user_id = ? AND is_personal_account = ?", userID, true).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}

		merged := datatypes.JSONMap{}
		for k, v := range account.PublicData {
			merged[k] = v
		}
		for k, v := range data {
			merged[k] = v
		}

		return tx.Model(&model.Account{}).
			Where("id = ?", account.ID).
			Update("public_data", merged).Error
	})
}

func (s *Store) UpdateAccountPicture(ctx context.Context, accountID, pictureURL string) error {
	return s.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", accountID).
		Update("picture_url", pictureURL).Error
}

// DeleteUser removes the user and everything hanging off them: their
// memberships, MFA factors, invitations they sent, and every account they
// primarily own. Teams go down with their primary owner, taking their
// remaining memberships and open invitations along. One transaction so a
// partial delete cannot leave an orphaned login.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ownedIDs []string
		if err := tx.Model(&model.Account{}).
			Where("primary_owner_user_id = ?", userID).
			Pluck("id", &ownedIDs).Error; err != nil {
			return err
		}
		if len(ownedIDs) > 0 {
			if err := tx.Where("account_id IN ?", ownedIDs).Delete(&model.Membership{}).Error; err != nil {
				return err
			}
			if err := tx.Where("account_id IN ?", ownedIDs).Delete(&model.Invitation{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.MFAFactor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invited_by = ?", userID).Delete(&model.Invitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("primary_owner_user_id = ?", userID).Delete(&model.Account{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", userID).Delete(&model.User{}).Error
	})
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Account{}).Count(&n).Error
	return n, err
}

func (s *Store) CountMemberships(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Membership{}).Count(&n).Error
	return n, err
}
