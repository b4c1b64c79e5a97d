package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/auth"
	"marketready/internal/config"
	"marketready/internal/handler"
	"marketready/internal/hub"
	"marketready/internal/mailer"
	"marketready/internal/middleware"
	"marketready/internal/onboarding"
	"marketready/internal/service"
	"marketready/internal/storage"
	"marketready/internal/store"
)

type Deps struct {
	Store    *store.Store
	Config   config.Config
	Mailer   mailer.Mailer
	Pictures storage.Pictures
	Hub      *hub.Hub
	Logger   *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	logger := deps.Logger
	secureCookies := strings.HasPrefix(cfg.SiteURL, "https://")

	tokenConfig := auth.TokenConfig{
		Secret: cfg.SessionSecret,
		Expiry: cfg.SessionExpiry,
		Issuer: cfg.ProductName,
	}
	mfa := auth.NewMFA(deps.Store, cfg.ProductName)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SecureHeaders(cfg.EnableStrictCSP))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.ActionPath())
	r.Use(middleware.CSRF(secureCookies))
	r.Use(middleware.RouteGate(middleware.GateDeps{
		Store:       deps.Store,
		MFA:         mfa,
		TokenConfig: tokenConfig,
		Paths:       cfg.Paths,
		Logger:      logger,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	signInLimiter := middleware.NewRateLimiter(cfg.SignInRateLimit, cfg.SignInRateWindow)
	authHandler := &handler.AuthHandler{
		Store:         deps.Store,
		MFA:           mfa,
		TokenConfig:   tokenConfig,
		Paths:         cfg.Paths,
		SignInLimiter: signInLimiter,
		SecureCookies: secureCookies,
		Logger:        logger,
	}
	r.POST("/v1/auth/sign-up", authHandler.SignUp)
	r.POST("/v1/auth/sign-in", authHandler.SignIn)
	r.POST("/v1/auth/sign-out", authHandler.SignOut)

	invitations := service.NewInvitations(deps.Store, logger)
	webhook := service.NewInvitationWebhook(deps.Store, deps.Mailer, deps.Hub, cfg, logger)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireSession(tokenConfig))

	mfaHandler := &handler.MFAHandler{
		Store:         deps.Store,
		MFA:           mfa,
		TokenConfig:   tokenConfig,
		Paths:         cfg.Paths,
		SecureCookies: secureCookies,
		Logger:        logger,
	}
	protected.GET("/mfa/factors", mfaHandler.ListFactors)
	protected.POST("/mfa/factors", mfaHandler.Enroll)
	protected.DELETE("/mfa/factors/:id", mfaHandler.DeleteFactor)
	protected.POST("/mfa/verify", mfaHandler.Verify)

	accountHandler := &handler.AccountHandler{
		Store:         deps.Store,
		Mailer:        deps.Mailer,
		Config:        cfg,
		SecureCookies: secureCookies,
		Logger:        logger,
	}
	protected.GET("/account", accountHandler.Profile)
	protected.PATCH("/account", accountHandler.UpdateProfile)
	protected.POST("/account/deletion/request", accountHandler.RequestDeletion)
	protected.POST("/account/deletion/confirm", accountHandler.ConfirmDeletion)

	onboardingHandler := &handler.OnboardingHandler{
		Store:    deps.Store,
		Sessions: onboarding.NewSessions(onboarding.DefaultSteps()),
		Pictures: deps.Pictures,
		Paths:    cfg.Paths,
		Logger:   logger,
	}
	protected.GET("/onboarding", onboardingHandler.State)
	protected.POST("/onboarding/next", onboardingHandler.Next)
	protected.POST("/onboarding/back", onboardingHandler.Back)
	protected.POST("/onboarding/picture", onboardingHandler.UploadPicture)
	protected.POST("/onboarding/submit", onboardingHandler.Submit)

	teamHandler := &handler.TeamHandler{Store: deps.Store}
	protected.POST("/teams", teamHandler.Create)
	protected.GET("/team/:slug", teamHandler.Get)

	invitationHandler := &handler.InvitationHandler{
		Store:       deps.Store,
		Invitations: invitations,
		Webhook:     webhook,
		Logger:      logger,
	}
	protected.POST("/team/:slug/invitations", invitationHandler.Send)
	protected.GET("/team/:slug/invitations", invitationHandler.List)
	protected.DELETE("/team/:slug/invitations/:id", invitationHandler.Delete)
	protected.PATCH("/team/:slug/invitations/:id", invitationHandler.Update)
	protected.POST("/team/:slug/invitations/:id/renew", invitationHandler.Renew)
	protected.POST("/invitations/accept", invitationHandler.Accept)

	adminHandler := &handler.AdminHandler{Store: deps.Store, Hub: deps.Hub, TokenConfig: tokenConfig}
	protected.GET("/admin/stats", adminHandler.Stats)
	r.GET("/admin/events", adminHandler.Events)

	webhookHandler := &handler.WebhookHandler{
		Store:   deps.Store,
		Webhook: webhook,
		Secret:  cfg.WebhookSecret,
		Logger:  logger,
	}
	r.POST("/webhooks/invitations", webhookHandler.HandleInvitation)

	return r
}
