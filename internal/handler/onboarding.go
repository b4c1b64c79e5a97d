package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketready/internal/config"
	"marketready/internal/middleware"
	"marketready/internal/model"
	"marketready/internal/onboarding"
	"marketready/internal/storage"
	"marketready/internal/store"
)

type OnboardingHandler struct {
	Store    *store.Store
	Sessions *onboarding.Sessions
	Pictures storage.Pictures
	Paths    config.Paths
	Logger   *zap.Logger
}

func (h *OnboardingHandler) userID(c *gin.Context) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return "", false
	}
	return claims.UserID, true
}

func stepPayload(w *onboarding.Wizard) gin.H {
	step := w.CurrentStep()
	fields := make([]gin.H, 0, len(step.Fields))
	for _, f := range step.Fields {
		fields = append(fields, gin.H{"name": f.Name, "rule": f.Rule})
	}
	return gin.H{
		"stepIndex": w.StepIndex(),
		"finalStep": w.OnFinalStep(),
		"title":     step.Title,
		"fields":    fields,
		"values":    w.Values(),
	}
}

func (h *OnboardingHandler) State(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stepPayload(h.Sessions.Get(userID)))
}

type stepBody struct {
	Values map[string]string `json:"values"`
}

func validationResponse(c *gin.Context, err error) bool {
	var verr *onboarding.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
		return true
	}
	return false
}

func (h *OnboardingHandler) Next(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var body stepBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	wizard := h.Sessions.Get(userID)
	if err := wizard.Next(body.Values); err != nil {
		if !validationResponse(c, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, stepPayload(wizard))
}

// Back never validates; users can always return to fix earlier answers.
func (h *OnboardingHandler) Back(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	wizard := h.Sessions.Get(userID)
	wizard.Back()
	c.JSON(http.StatusOK, stepPayload(wizard))
}

// UploadPicture stores the profile picture and records its public URL in
// the wizard values so the final submit carries it into the account record.
func (h *OnboardingHandler) UploadPicture(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	header, err := c.FormFile("profilePicture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer file.Close()

	url, err := h.Pictures.Upload(c.Request.Context(), userID, file, header.Size, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, storage.ErrPictureTooBig), errors.Is(err, storage.ErrInvalidPictureType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Logger.Error("picture upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	wizard := h.Sessions.Get(userID)
	wizard.SetValue("profilePicture", url)

	c.JSON(http.StatusOK, gin.H{"success": true, "pictureUrl": url})
}

// Submit revalidates everything collected across the steps, persists the
// merged record into the personal account and marks onboarding complete.
// The wizard session is only discarded after the write succeeds.
func (h *OnboardingHandler) Submit(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var body stepBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	wizard := h.Sessions.Get(userID)
	record, err := wizard.Submit(body.Values)
	if err != nil {
		if !validationResponse(c, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	data := make(map[string]any, len(record)+1)
	for k, v := range record {
		data[k] = v
	}
	data[model.OnboardingCompletedKey] = true

	if err := h.Store.MergePublicData(c.Request.Context(), userID, data); err != nil {
		h.Logger.Error("onboarding persistence failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete onboarding"})
		return
	}

	if url, found := record["profilePicture"]; found && url != "" {
		if err := h.Store.UpdateAccountPicture(c.Request.Context(), userID, url); err != nil {
			h.Logger.Warn("picture url update failed", zap.Error(err))
		}
	}

	h.Sessions.Clear(userID)
	c.JSON(http.StatusOK, gin.H{"success": true, "redirectTo": h.Paths.Home})
}
