package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketready/internal/model"
)

func (s *Store) CreateFactor(ctx context.Context, factor *model.MFAFactor) error {
	if factor.ID == "" {
		factor.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(factor).Error
}

func (s *Store) FindFactor(ctx context.Context, userID, factorID string) (*model.MFAFactor, error) {
	var factor model.MFAFactor
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", factorID, userID).
		First(&factor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFactorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &factor, nil
}

func (s *Store) ListFactors(ctx context.Context, userID string) ([]model.MFAFactor, error) {
	var factors []model.MFAFactor
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&factors).Error
	return factors, err
}

func (s *Store) ListVerifiedFactors(ctx context.Context, userID string) ([]model.MFAFactor, error) {
	var factors []model.MFAFactor
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND verified = ?", userID, true).
		Order("created_at ASC").
		Find(&factors).Error
	return factors, err
}

func (s *Store) MarkFactorVerified(ctx context.Context, factorID string) error {
	return s.db.WithContext(ctx).Model(&model.MFAFactor{}).
		Where("id = ?", factorID).
		Update("verified", true).Error
}

func (s *Store) DeleteFactor(ctx context.Context, userID, factorID string) error {
	return s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", factorID, userID).
		Delete(&model.MFAFactor{}).Error
}
