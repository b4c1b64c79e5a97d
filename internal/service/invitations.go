package service

import (
	"context"
	"errors"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"marketready/internal/model"
	"marketready/internal/store"
)

var (
	ErrAlreadyMember  = errors.New("user already member of the team")
	ErrDuplicateEmail = errors.New("duplicate email in invitation batch")
)

// Invitations holds the business rules around the invitations table.
// Store errors are logged with context and returned unchanged; there is no
// retry or translation layer.
type Invitations struct {
	Store  *store.Store
	Logger *zap.Logger
}

func NewInvitations(st *store.Store, logger *zap.Logger) *Invitations {
	return &Invitations{Store: st, Logger: logger.With(zap.String("namespace", "invitations"))}
}

// SendInvitations validates the whole batch before anything is written:
// a duplicate email in the batch or an email already belonging to a member
// rejects every invitation (fails closed). On success the rows are
// inserted in a single transaction with server-assigned tokens.
func (s *Invitations) SendInvitations(ctx context.Context, accountSlug string, invites []store.InviteInput, invitedBy string) ([]model.Invitation, error) {
	logger := s.Logger.With(zap.String("accountSlug", accountSlug))
	logger.Info("storing invitations", zap.Int("requested", len(invites)))

	seen := mapset.NewSet[string]()
	for _, invite := range invites {
		if !seen.Add(invite.Email) {
			logger.Error("error validating invitations", zap.String("email", invite.Email), zap.Error(ErrDuplicateEmail))
			return nil, ErrDuplicateEmail
		}
	}

	members, err := s.Store.GetAccountMembers(ctx, accountSlug)
	if err != nil {
		logger.Error("error validating invitations", zap.Error(err))
		return nil, err
	}
	memberEmails := mapset.NewSet[string]()
	for _, member := range members {
		memberEmails.Add(member.Email)
	}
	for _, invite := range invites {
		if memberEmails.Contains(invite.Email) {
			logger.Error("error validating invitations", zap.String("email", invite.Email), zap.Error(ErrAlreadyMember))
			return nil, ErrAlreadyMember
		}
	}

	rows, err := s.Store.AddInvitationsToAccount(ctx, accountSlug, invites, invitedBy)
	if err != nil {
		logger.Error("failed to add invitations to account", zap.Error(err))
		return nil, err
	}

	logger.Info("invitations added to account", zap.Int("count", len(rows)))
	return rows, nil
}

func (s *Invitations) DeleteInvitation(ctx context.Context, invitationID uint) error {
	logger := s.Logger.With(zap.Uint("invitationId", invitationID))
	logger.Info("removing invitation")

	if err := s.Store.DeleteInvitation(ctx, invitationID); err != nil {
		logger.Error("failed to remove invitation", zap.Error(err))
		return err
	}

	logger.Info("invitation successfully removed")
	return nil
}

func (s *Invitations) UpdateInvitation(ctx context.Context, invitationID uint, role string) error {
	logger := s.Logger.With(zap.Uint("invitationId", invitationID), zap.String("role", role))
	logger.Info("updating invitation")

	if err := s.Store.UpdateInvitationRole(ctx, invitationID, role); err != nil {
		logger.Error("failed to update invitation", zap.Error(err))
		return err
	}

	logger.Info("invitation successfully updated")
	return nil
}

// RenewInvitation extends the expiry to 7 days from now.
func (s *Invitations) RenewInvitation(ctx context.Context, invitationID uint) error {
	logger := s.Logger.With(zap.Uint("invitationId", invitationID))
	logger.Info("renewing invitation")

	if err := s.Store.RenewInvitation(ctx, invitationID); err != nil {
		logger.Error("failed to renew invitation", zap.Error(err))
		return err
	}

	logger.Info("invitation successfully renewed")
	return nil
}

// AcceptInvitationToTeam consumes the token and creates the membership.
// It requires the privileged store handle because it operates across
// account boundaries on behalf of the invited user.
func (s *Invitations) AcceptInvitationToTeam(ctx context.Context, admin *store.AdminStore, userID, inviteToken string) (*model.Membership, error) {
	logger := s.Logger.With(zap.String("userId", userID))
	logger.Info("accepting invitation to team")

	membership, err := admin.AcceptInvitation(ctx, inviteToken, userID)
	if err != nil {
		logger.Error("failed to accept invitation to team", zap.Error(err))
		return nil, err
	}

	logger.Info("successfully accepted invitation to team", zap.String("accountId", membership.AccountID))
	return membership, nil
}
