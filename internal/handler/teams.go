package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketready/internal/middleware"
	"marketready/internal/model"
	"marketready/internal/store"
)

type TeamHandler struct {
	Store *store.Store
}

type createTeamBody struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required,lowercase"`
}

// Create makes a new team with the caller as the founding owner.
func (h *TeamHandler) Create(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var body createTeamBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	account := &model.Account{Name: body.Name, Slug: &body.Slug}
	if err := h.Store.CreateTeamWithOwner(c.Request.Context(), account, claims.UserID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Slug already taken"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "accountId": account.ID, "slug": body.Slug})
}

func (h *TeamHandler) Get(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	slug := c.Param("slug")
	members, err := h.Store.GetAccountMembers(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	isMember := false
	for _, m := range members {
		if m.UserID == claims.UserID {
			isMember = true
			break
		}
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this team"})
		return
	}

	account, err := h.Store.FindAccountBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	out := make([]gin.H, 0, len(members))
	for _, m := range members {
		out = append(out, gin.H{"userId": m.UserID, "email": m.Email, "role": m.Role})
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      account.ID,
		"name":    account.Name,
		"slug":    slug,
		"members": out,
	})
}
