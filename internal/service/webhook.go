package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketready/internal/config"
	"marketready/internal/email"
	"marketready/internal/hub"
	"marketready/internal/mailer"
	"marketready/internal/model"
	"marketready/internal/store"
)

// Result reports the outcome of the email stage. The invitation row is
// already persisted when the dispatcher runs, so delivery failures are
// reported here rather than returned as errors.
type Result struct {
	Success bool
	Err     error
}

// InvitationWebhook reacts to a persisted invitation: it resolves the
// inviter and team, renders the invite email, and sends it.
type InvitationWebhook struct {
	Store  *store.Store
	Mailer mailer.Mailer
	Hub    *hub.Hub
	Config config.Config
	Logger *zap.Logger
}

func NewInvitationWebhook(st *store.Store, m mailer.Mailer, h *hub.Hub, cfg config.Config, logger *zap.Logger) *InvitationWebhook {
	return &InvitationWebhook{
		Store:  st,
		Mailer: m,
		Hub:    h,
		Config: cfg,
		Logger: logger.With(zap.String("namespace", "accounts.invitations.webhook")),
	}
}

// HandleInvitationWebhook dispatches the invitation email. Failures while
// fetching the inviter or team abort with an error; failures while
// rendering or sending degrade to Result{Success:false} since the
// invitation row must survive a transient email problem.
func (w *InvitationWebhook) HandleInvitationWebhook(ctx context.Context, invitation *model.Invitation) (Result, error) {
	logger := w.Logger.With(zap.Uint("invitationId", invitation.ID))
	logger.Info("handling invitation webhook event")

	// both lookups are required before continuing, so fetch them together
	var inviter, team *model.Account
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		account, err := w.Store.FindAccountByID(groupCtx, invitation.InvitedBy)
		if err != nil {
			logger.Error("failed to fetch inviter details", zap.Error(err))
			return err
		}
		inviter = account
		return nil
	})
	group.Go(func() error {
		account, err := w.Store.FindAccountByID(groupCtx, invitation.AccountID)
		if err != nil {
			logger.Error("failed to fetch team details", zap.Error(err))
			return err
		}
		team = account
		return nil
	})
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	logger.Info("invite retrieved, sending invitation email")

	inviterName := inviter.Name
	if inviterName == "" {
		inviterName = inviter.Email
	}

	subject, html, err := email.RenderInviteEmail(email.InviteParams{
		Link:             w.Config.InviteLink(invitation.InviteToken, invitation.Email),
		InvitedUserEmail: invitation.Email,
		Inviter:          inviterName,
		ProductName:      w.Config.ProductName,
		TeamName:         team.Name,
	})
	if err != nil {
		logger.Warn("failed to invite user to team", zap.Error(err))
		return Result{Success: false, Err: err}, nil
	}

	err = w.Mailer.SendEmail(ctx, mailer.Message{
		From:    w.Config.EmailSender,
		To:      invitation.Email,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		logger.Error("failed to send invitation email", zap.Error(err))
		return Result{Success: false, Err: err}, nil
	}

	logger.Info("invitation email successfully sent")

	if w.Hub != nil {
		w.Hub.Broadcast(hub.Event{Type: "invitation.sent", Body: map[string]any{
			"invitationId": invitation.ID,
			"accountId":    invitation.AccountID,
			"email":        invitation.Email,
		}})
	}

	return Result{Success: true}, nil
}
