package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/auth"
	"marketready/internal/config"
	"marketready/internal/store"
)

// GateDeps wires the route gate's collaborators.
type GateDeps struct {
	Store       *store.Store
	MFA         *auth.MFA
	TokenConfig auth.TokenConfig
	Paths       config.Paths
	Logger      *zap.Logger
}

// Guard inspects a matched request and either redirects or passes. An
// empty redirect target means pass-through.
type Guard struct {
	Name    string
	Matches func(path string) bool
	Handle  func(c *gin.Context) (redirect string)
}

func prefixMatcher(prefix string) func(string) bool {
	return func(path string) bool {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
}

// Guards returns the ordered guard list. Only the first matching guard
// runs; a request matching none of the patterns falls through ungated,
// which the final default guard makes an explicit, tested policy.
func (d GateDeps) Guards() []Guard {
	return []Guard{
		{Name: "admin", Matches: prefixMatcher(d.Paths.AdminRoot), Handle: d.adminGuard},
		{Name: "auth", Matches: prefixMatcher("/auth"), Handle: d.authGuard},
		{Name: "home", Matches: prefixMatcher(d.Paths.Home), Handle: d.homeGuard},
		{Name: "default", Matches: func(string) bool { return true }, Handle: func(*gin.Context) string { return "" }},
	}
}

// RouteGate evaluates the guard list once per navigable request. Guards
// resolve failures only as redirects, never as errors surfaced to the
// visitor.
func RouteGate(deps GateDeps) gin.HandlerFunc {
	guards := deps.Guards()
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, guard := range guards {
			if !guard.Matches(path) {
				continue
			}
			if dest := guard.Handle(c); dest != "" {
				deps.Logger.Debug("route gate redirect",
					zap.String("guard", guard.Name),
					zap.String("path", path),
					zap.String("to", dest),
				)
				c.Redirect(http.StatusFound, dest)
				c.Abort()
				return
			}
			break
		}
		c.Next()
	}
}

// adminGuard: unauthenticated visitors go to sign-in; authenticated
// non-super-admins get the not-found page so the area stays unadvertised.
func (d GateDeps) adminGuard(c *gin.Context) string {
	claims := SessionClaims(c, d.TokenConfig)
	if claims == nil {
		return d.Paths.SignIn
	}

	user, err := d.Store.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil || !user.IsSuperAdmin {
		return d.Paths.NotFound
	}
	return ""
}

// authGuard: a signed-in visitor has no business on the auth pages except
// the MFA verification page; honor the next parameter when bouncing them.
func (d GateDeps) authGuard(c *gin.Context) string {
	claims := SessionClaims(c, d.TokenConfig)
	if claims == nil {
		return ""
	}
	if c.Request.URL.Path == d.Paths.VerifyMFA {
		return ""
	}
	if next := c.Query("next"); next != "" {
		return next
	}
	return d.Paths.Home
}

// homeGuard: sign-in, then MFA, then onboarding, in that order of
// precedence. A failed onboarding lookup counts as incomplete.
func (d GateDeps) homeGuard(c *gin.Context) string {
	path := c.Request.URL.Path

	claims := SessionClaims(c, d.TokenConfig)
	if claims == nil {
		return d.Paths.SignIn + "?next=" + path
	}

	requiresMFA, err := d.MFA.RequiresMFA(c.Request.Context(), claims)
	if err != nil {
		d.Logger.Warn("mfa requirement lookup failed", zap.Error(err))
		return d.Paths.VerifyMFA
	}
	if requiresMFA {
		return d.Paths.VerifyMFA
	}

	if path == d.Paths.Onboarding {
		return ""
	}

	account, err := d.Store.FindPersonalAccount(c.Request.Context(), claims.UserID)
	if err != nil || !account.HasCompletedOnboarding() {
		return d.Paths.Onboarding
	}
	return ""
}
