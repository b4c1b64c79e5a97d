package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"marketready/internal/auth"
	"marketready/internal/hub"
	"marketready/internal/middleware"
	"marketready/internal/store"
)

type AdminHandler struct {
	Store       *store.Store
	Hub         *hub.Hub
	TokenConfig auth.TokenConfig
}

// requireSuperAdmin performs the same check as the route gate. Admin API
// endpoints verify it again so they stay safe if ever mounted elsewhere.
func (h *AdminHandler) requireSuperAdmin(c *gin.Context, claims *auth.Claims) bool {
	user, err := h.Store.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil || !user.IsSuperAdmin {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return false
	}
	return true
}

func (h *AdminHandler) Stats(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if !h.requireSuperAdmin(c, claims) {
		return
	}

	accounts, err := h.Store.CountAccounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	memberships, err := h.Store.CountMemberships(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	invitations, err := h.Store.CountInvitations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accounts":           accounts,
		"memberships":        memberships,
		"openInvitations":    invitations,
		"liveAdminListeners": h.Hub.ConnectionCount(),
	})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

// Events upgrades to a websocket and streams lifecycle events to the
// admin dashboard. The token travels in the query string because browser
// websocket clients cannot set cookies for cross-origin upgrades.
func (h *AdminHandler) Events(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	claims, err := auth.VerifyToken(tokenString, h.TokenConfig)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	if !h.requireSuperAdmin(c, claims) {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	conn := &hub.Connection{UserID: claims.UserID, Writer: &wsWriter{conn: ws}}
	h.Hub.Register(conn)
	defer func() {
		h.Hub.Unregister(conn)
		_ = ws.Close()
	}()

	const pongWait = 60 * time.Second
	const writeWait = 10 * time.Second
	pingPeriod := (pongWait * 9) / 10

	ws.SetReadLimit(1024)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(writeWait)
				if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					_ = ws.Close()
					return
				}
			}
		}
	}()
	defer close(done)

	// The stream is server-to-client; inbound frames only keep the
	// read deadline moving.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
