package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /calendar/auth?provider_id=
// Returns the Google consent URL that links the provider's calendar.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	providerID := c.Query("provider_id")
	if providerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider_id required"})
		return
	}
	if !requireManager(c, providerID) {
		return
	}
	if _, err := a.Repo.ReadProvider(c.Request.Context(), providerID); err != nil {
		a.respondError(c, err)
		return
	}

	url, state, err := a.Calendar.AuthURL(providerID, time.Now())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GET /oauth2callback?code=&state=
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if a.Calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return
	}
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + errParam})
		return
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state required"})
		return
	}

	providerID, err := a.Calendar.Complete(c.Request.Context(), code, state)
	if err != nil {
		a.logger().Warn("calendar link failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not link calendar"})
		return
	}
	a.logger().Info("calendar linked", zap.String("provider_id", providerID))
	c.JSON(http.StatusOK, gin.H{
		"message":     "Google Calendar linked",
		"provider_id": providerID,
	})
}
