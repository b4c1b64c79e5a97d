package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/config"
	"marketready/internal/mailer"
	"marketready/internal/middleware"
	"marketready/internal/store"
)

const deletionNoncePurpose = "account-deletion"

type AccountHandler struct {
	Store         *store.Store
	Mailer        mailer.Mailer
	Config        config.Config
	SecureCookies bool
	Logger        *zap.Logger
}

func (h *AccountHandler) Profile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := h.Store.FindPersonalAccount(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         account.ID,
		"name":       account.Name,
		"email":      account.Email,
		"pictureUrl": account.PictureURL,
		"publicData": account.PublicData,
		"onboarded":  account.HasCompletedOnboarding(),
	})
}

type updateProfileBody struct {
	PublicData map[string]any `json:"publicData" binding:"required"`
}

// UpdateProfile merges the submitted keys into the account's public data.
// Keys not present in the request are left untouched.
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.Store.MergePublicData(c.Request.Context(), claims.UserID, body.PublicData); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RequestDeletion mints a single-use confirmation token and emails it to
// the account owner. Deletion only proceeds when the token comes back.
func (h *AccountHandler) RequestDeletion(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
		return
	}

	nonce, err := h.Store.CreateNonce(c.Request.Context(), deletionNoncePurpose, &user.ID, nil, time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start account deletion"})
		return
	}

	err = h.Mailer.SendEmail(c.Request.Context(), mailer.Message{
		From:    h.Config.EmailSender,
		To:      user.Email,
		Subject: fmt.Sprintf("Confirm deleting your %s account", h.Config.ProductName),
		HTML: fmt.Sprintf("<p>Use this code to confirm deleting your account: <strong>%s</strong></p>"+
			"<p>The code expires in one hour. If you did not request this, ignore this email.</p>",
			nonce.ClientToken),
	})
	if err != nil {
		h.Logger.Error("deletion confirmation email failed", zap.Error(err))
		if revokeErr := h.Store.RevokeNonce(c.Request.Context(), nonce.ClientToken, "email delivery failed"); revokeErr != nil {
			h.Logger.Warn("nonce revocation failed", zap.Error(revokeErr))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send confirmation email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type confirmDeletionBody struct {
	Token string `json:"token" binding:"required"`
}

func (h *AccountHandler) ConfirmDeletion(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body confirmDeletionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	nonce, err := h.Store.ConsumeNonce(c.Request.Context(), body.Token, deletionNoncePurpose)
	if errors.Is(err, store.ErrNonceInvalid) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired confirmation code"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm deletion"})
		return
	}
	if nonce.UserID == nil || *nonce.UserID != claims.UserID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired confirmation code"})
		return
	}

	if err := h.Store.DeleteUser(c.Request.Context(), claims.UserID); err != nil {
		h.Logger.Error("account deletion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete account"})
		return
	}

	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
