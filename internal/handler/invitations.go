package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/middleware"
	"marketready/internal/service"
	"marketready/internal/store"
)

type InvitationHandler struct {
	Store       *store.Store
	Invitations *service.Invitations
	Webhook     *service.InvitationWebhook
	Logger      *zap.Logger
}

type sendInvitationsBody struct {
	Invitations []struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required,oneof=owner member"`
	} `json:"invitations" binding:"required,min=1,dive"`
}

// requireMember resolves the team by slug and checks the requester belongs
// to it. Team management endpoints are scoped this way rather than by role;
// role checks live in the database rules.
func (h *InvitationHandler) requireMember(c *gin.Context) (string, string, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return "", "", false
	}

	slug := c.Param("slug")
	members, err := h.Store.GetAccountMembers(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return "", "", false
	}
	for _, member := range members {
		if member.UserID == claims.UserID {
			return slug, claims.UserID, true
		}
	}

	c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this team"})
	return "", "", false
}

func (h *InvitationHandler) Send(c *gin.Context) {
	slug, userID, ok := h.requireMember(c)
	if !ok {
		return
	}

	var body sendInvitationsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	invites := make([]store.InviteInput, 0, len(body.Invitations))
	for _, invite := range body.Invitations {
		invites = append(invites, store.InviteInput{Email: invite.Email, Role: invite.Role})
	}

	rows, err := h.Invitations.SendInvitations(c.Request.Context(), slug, invites, userID)
	switch {
	case errors.Is(err, service.ErrAlreadyMember), errors.Is(err, service.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateInvite):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, store.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send invitations"})
		return
	}

	// Email dispatch is best effort. A failed send leaves the invitation
	// row in place so it can be renewed and resent.
	for i := range rows {
		result, err := h.Webhook.HandleInvitationWebhook(c.Request.Context(), &rows[i])
		if err != nil {
			h.Logger.Error("invitation webhook failed", zap.Uint("invitationId", rows[i].ID), zap.Error(err))
			continue
		}
		if !result.Success {
			h.Logger.Warn("invitation email not delivered", zap.Uint("invitationId", rows[i].ID), zap.Error(result.Err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(rows)})
}

func (h *InvitationHandler) List(c *gin.Context) {
	slug, _, ok := h.requireMember(c)
	if !ok {
		return
	}

	account, err := h.Store.FindAccountBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	rows, err := h.Store.ListInvitations(c.Request.Context(), account.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invitations"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"email":     row.Email,
			"role":      row.Role,
			"createdAt": row.CreatedAt,
			"expiresAt": row.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"invitations": out})
}

func (h *InvitationHandler) invitationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invitation id"})
		return 0, false
	}
	return uint(id), true
}

func (h *InvitationHandler) Delete(c *gin.Context) {
	if _, _, ok := h.requireMember(c); !ok {
		return
	}
	id, ok := h.invitationID(c)
	if !ok {
		return
	}

	if err := h.Invitations.DeleteInvitation(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete invitation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type updateInvitationBody struct {
	Role string `json:"role" binding:"required,oneof=owner member"`
}

func (h *InvitationHandler) Update(c *gin.Context) {
	if _, _, ok := h.requireMember(c); !ok {
		return
	}
	id, ok := h.invitationID(c)
	if !ok {
		return
	}

	var body updateInvitationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.Invitations.UpdateInvitation(c.Request.Context(), id, body.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invitation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *InvitationHandler) Renew(c *gin.Context) {
	if _, _, ok := h.requireMember(c); !ok {
		return
	}
	id, ok := h.invitationID(c)
	if !ok {
		return
	}

	if err := h.Invitations.RenewInvitation(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew invitation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type acceptInvitationBody struct {
	InviteToken string `json:"inviteToken" binding:"required"`
}

// Accept joins the signed-in user to the inviting team and consumes the
// token. Expired tokens are rejected with a distinct message so the UI can
// offer to request a renewal.
func (h *InvitationHandler) Accept(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body acceptInvitationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	membership, err := h.Invitations.AcceptInvitationToTeam(c.Request.Context(), h.Store.Admin(), claims.UserID, body.InviteToken)
	switch {
	case errors.Is(err, store.ErrInvitationExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Invitation has expired"})
		return
	case errors.Is(err, store.ErrInvitationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"accountId": membership.AccountID,
		"role":      membership.Role,
	})
}
