package model

import (
	"time"

	"gorm.io/datatypes"
)

// Role names accepted on invitations and memberships.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

const OnboardingCompletedKey = "has_completed_onboarding"

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsSuperAdmin bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account is either the single personal account of a user or a team
// account shared through memberships. PublicData is an opaque JSON bag;
// writes are unstructured merges with last-write-wins semantics.
type Account struct {
	ID                 string  `gorm:"type:uuid;primaryKey"`
	Name               string  `gorm:"not null"`
	Slug               *string `gorm:"uniqueIndex"`
	IsPersonalAccount  bool    `gorm:"not null;default:false;index:idx_personal_owner,priority:2"`
	PrimaryOwnerUserID string  `gorm:"type:uuid;not null;index:idx_personal_owner,priority:1"`
	Email              string
	PictureURL         string
	PublicData         datatypes.JSONMap `gorm:"type:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasCompletedOnboarding reports whether the onboarding flag is strictly
// true. Any other value, including a missing key, counts as incomplete.
func (a *Account) HasCompletedOnboarding() bool {
	if a == nil || a.PublicData == nil {
		return false
	}
	v, ok := a.PublicData[OnboardingCompletedKey].(bool)
	return ok && v
}

type Invitation struct {
	ID          uint   `gorm:"primaryKey"`
	AccountID   string `gorm:"type:uuid;not null;uniqueIndex:idx_invite_account_email,priority:1"`
	Email       string `gorm:"not null;uniqueIndex:idx_invite_account_email,priority:2"`
	Role        string `gorm:"not null"`
	InviteToken string `gorm:"uniqueIndex;not null"`
	InvitedBy   string `gorm:"type:uuid;not null"`
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

type Membership struct {
	AccountID string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;primaryKey"`
	Role      string `gorm:"not null"`
	CreatedAt time.Time
}

type MFAFactor struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	UserID       string `gorm:"type:uuid;not null;index"`
	FriendlyName string `gorm:"not null"`
	Secret       string `gorm:"not null" json:"-"`
	Verified     bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Nonce is a single-use verification token scoped to a purpose.
type Nonce struct {
	ID            uint    `gorm:"primaryKey"`
	ClientToken   string  `gorm:"uniqueIndex;not null"`
	Purpose       string  `gorm:"not null;index"`
	UserID        *string `gorm:"type:uuid"`
	Scopes        string
	ExpiresAt     time.Time
	UsedAt        *time.Time
	RevokedAt     *time.Time
	RevokedReason string
	CreatedAt     time.Time
}
