package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHandler stores the cloud session token and user settings.
type SessionHandler struct {
	session SessionFacade
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(session SessionFacade) *SessionHandler {
	return &SessionHandler{session: session}
}

// SetTokenRequest carries the bearer token obtained from the sign-in flow.
type SetTokenRequest struct {
	Token string `json:"token" binding:"required,min=1,max=4096"`
}

// SetSettingRequest carries a settings value.
type SetSettingRequest struct {
	Value string `json:"value" binding:"max=4096"`
}

// SetToken stores the session token used for cloud sync.
func (h *SessionHandler) SetToken(c *gin.Context) {
	var req SetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	if err := h.session.SetSessionToken(c.Request.Context(), req.Token); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// ClearToken signs out of the cloud. Local data is untouched.
func (h *SessionHandler) ClearToken(c *gin.Context) {
	if err := h.session.ClearSessionToken(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false})
}

// GetSession reports whether a usable session token is stored.
func (h *SessionHandler) GetSession(c *gin.Context) {
	ok, err := h.session.IsAuthenticated(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

// GetSettings lists user settings.
func (h *SessionHandler) GetSettings(c *gin.Context) {
	settings, err := h.session.GetSettings(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// SetSetting stores one user setting.
func (h *SessionHandler) SetSetting(c *gin.Context) {
	var req SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalid(err))
		return
	}

	key := c.Param("key")
	if err := h.session.SetSetting(c.Request.Context(), key, req.Value); err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value})
}

// DeleteSetting removes one user setting.
func (h *SessionHandler) DeleteSetting(c *gin.Context) {
	if err := h.session.DeleteSetting(c.Request.Context(), c.Param("key")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
