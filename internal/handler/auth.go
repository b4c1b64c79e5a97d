package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/auth"
	"marketready/internal/config"
	"marketready/internal/middleware"
	"marketready/internal/model"
	"marketready/internal/store"
)

type AuthHandler struct {
	Store         *store.Store
	MFA           *auth.MFA
	TokenConfig   auth.TokenConfig
	Paths         config.Paths
	SignInLimiter *middleware.RateLimiter
	SecureCookies bool
	Logger        *zap.Logger
}

type signUpBody struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(middleware.SessionCookie, token, int(h.TokenConfig.Expiry.Seconds()), "/", "", h.SecureCookies, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.SecureCookies, true)
}

// SignUp creates the user and their personal account in one transaction.
// The personal account starts without the onboarding flag, so the route
// gate sends the fresh user to the wizard.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var body signUpBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign up failed"})
		return
	}

	user := &model.User{Email: body.Email, PasswordHash: hash}
	if err := h.Store.CreateUserWithPersonalAccount(c.Request.Context(), user, body.Name); err != nil {
		h.Logger.Error("sign up failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	token, err := auth.CreateToken(user.ID, auth.AAL1, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	h.setSessionCookie(c, token)

	c.JSON(http.StatusOK, gin.H{"success": true, "userId": user.ID, "token": token})
}

type signInBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	if h.SignInLimiter != nil && !h.SignInLimiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	var body signInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.Store.FindUserByEmail(c.Request.Context(), body.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.CreateToken(user.ID, auth.AAL1, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token creation failed"})
		return
	}
	h.setSessionCookie(c, token)

	claims := &auth.Claims{UserID: user.ID, AAL: auth.AAL1}
	requiresMFA, err := h.MFA.RequiresMFA(c.Request.Context(), claims)
	if err != nil {
		h.Logger.Warn("mfa requirement lookup failed", zap.Error(err))
		requiresMFA = true
	}

	redirect := h.Paths.Home
	if requiresMFA {
		redirect = h.Paths.VerifyMFA
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"token":       token,
		"requiresMfa": requiresMFA,
		"redirectTo":  redirect,
	})
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
