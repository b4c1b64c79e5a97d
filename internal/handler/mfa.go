package handler

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/auth"
	"marketready/internal/config"
	"marketready/internal/middleware"
	"marketready/internal/store"
)

type MFAHandler struct {
	Store         *store.Store
	MFA           *auth.MFA
	TokenConfig   auth.TokenConfig
	Paths         config.Paths
	SecureCookies bool
	Logger        *zap.Logger
}

// ListFactors returns the verified factors for the challenge screen. When
// the lookup fails we cannot tell whether the user has factors at all, so
// the session is terminated rather than letting the challenge be skipped.
func (h *MFAHandler) ListFactors(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	factors, err := h.Store.ListVerifiedFactors(c.Request.Context(), claims.UserID)
	if err != nil {
		h.Logger.Error("factor listing failed, signing out", zap.Error(err))
		c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session terminated", "redirectTo": h.Paths.SignIn})
		return
	}

	out := make([]gin.H, 0, len(factors))
	for _, f := range factors {
		out = append(out, gin.H{"id": f.ID, "friendlyName": f.FriendlyName})
	}

	c.JSON(http.StatusOK, gin.H{
		"factors":    out,
		"autoSelect": len(factors) == 1,
	})
}

type enrollBody struct {
	FriendlyName string `json:"friendlyName" binding:"required"`
}

func (h *MFAHandler) Enroll(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body enrollBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
		return
	}

	enrollment, err := h.MFA.EnrollFactor(c.Request.Context(), user.ID, user.Email, body.FriendlyName)
	if err != nil {
		h.Logger.Error("factor enrollment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Enrollment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"factorId":        enrollment.Factor.ID,
		"provisioningUri": enrollment.ProvisioningURI,
		"qrCode":          base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
	})
}

type verifyBody struct {
	FactorID         string `json:"factorId" binding:"required"`
	VerificationCode string `json:"verificationCode" binding:"required,len=6"`
}

// Verify runs the TOTP challenge and upgrades the session to the second
// assurance level on success.
func (h *MFAHandler) Verify(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification code"})
		return
	}

	if err := h.MFA.ChallengeAndVerify(c.Request.Context(), claims.UserID, body.FactorID, body.VerificationCode); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid verification code"})
		return
	}

	token, err := auth.CreateToken(claims.UserID, auth.AAL2, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	c.SetCookie(middleware.SessionCookie, token, int(h.TokenConfig.Expiry.Seconds()), "/", "", h.SecureCookies, true)

	redirect := c.Query("next")
	if redirect == "" {
		redirect = h.Paths.Home
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "redirectTo": redirect})
}

func (h *MFAHandler) DeleteFactor(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if err := h.Store.DeleteFactor(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Factor not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
