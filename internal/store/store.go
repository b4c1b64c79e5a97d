package store

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketready/internal/model"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrDuplicateInvite    = errors.New("invitation already exists for this email")
	ErrUserNotFound       = errors.New("user not found")
	ErrFactorNotFound     = errors.New("mfa factor not found")
	ErrNonceInvalid       = errors.New("nonce invalid or consumed")
)

// Store wraps the relational backend. All consistency rules (invitation
// uniqueness, atomic accept) live in transactional methods here, the way
// the hosted database's stored procedures would enforce them.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return New(db)
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Account{},
		&model.Invitation{},
		&model.Membership{},
		&model.MFAFactor{},
		&model.Nonce{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithNow overrides the clock. Tests only.
func (s *Store) WithNow(now func() time.Time) *Store {
	clone := *s
	clone.now = now
	return &clone
}

// Admin returns a privileged handle. Operations that bypass per-account
// authorization (accepting an invitation for an arbitrary token) hang off
// this type so callers must opt in explicitly.
func (s *Store) Admin() *AdminStore {
	return &AdminStore{store: s}
}

type AdminStore struct {
	store *Store
}
