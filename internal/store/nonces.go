package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"

	"marketready/internal/model"
)

// CreateNonce mints a single-use token for the given purpose. Scopes limit
// what the consumer may do with it.
func (s *Store) CreateNonce(ctx context.Context, purpose string, userID *string, scopes []string, ttl time.Duration) (*model.Nonce, error) {
	nonce := &model.Nonce{
		ClientToken: ksuid.New().String(),
		Purpose:     purpose,
		UserID:      userID,
		Scopes:      strings.Join(scopes, ","),
		ExpiresAt:   s.now().UTC().Add(ttl),
	}
	if err := s.db.WithContext(ctx).Create(nonce).Error; err != nil {
		return nil, err
	}
	return nonce, nil
}

// ConsumeNonce marks the token used. Expired, revoked, already-used, or
// wrong-purpose tokens all fail with ErrNonceInvalid.
func (s *Store) ConsumeNonce(ctx context.Context, token, purpose string) (*model.Nonce, error) {
	var nonce model.Nonce
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("client_token = ?", token).First(&nonce).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNonceInvalid
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if nonce.Purpose != purpose || nonce.UsedAt != nil || nonce.RevokedAt != nil || now.After(nonce.ExpiresAt) {
			return ErrNonceInvalid
		}

		nonce.UsedAt = &now
		return tx.Model(&model.Nonce{}).
			Where("id = ?", nonce.ID).
			Update("used_at", now).Error
	})
	if err != nil {
		return nil, err
	}
	return &nonce, nil
}

func (s *Store) ListNoncesForUser(ctx context.Context, userID string) ([]model.Nonce, error) {
	var nonces []model.Nonce
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&nonces).Error
	return nonces, err
}

func (s *Store) RevokeNonce(ctx context.Context, token, reason string) error {
	now := s.now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Nonce{}).
		Where("client_token = ? AND revoked_at IS NULL", token).
		Updates(map[string]any{"revoked_at": now, "revoked_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNonceInvalid
	}
	return nil
}

// PurgeStaleNonces removes expired, used, and revoked rows.
func (s *Store) PurgeStaleNonces(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL OR revoked_at IS NOT NULL", s.now().UTC()).
		Delete(&model.Nonce{})
	return res.RowsAffected, res.Error
}
