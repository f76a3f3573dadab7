package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Register mounts the public routes and the /api group guarded by auth.
func (a *App) Register(router *gin.Engine, auth gin.HandlerFunc, checks map[string]HealthCheck) {
	router.GET("/healthz", healthHandler(checks))

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api", auth)
	{
		api.GET("/providers", a.ListProvidersHandler)
		providers := api.Group("/providers/:id")
		{
			providers.GET("/schedule", a.GetScheduleHandler)
			providers.PUT("/schedule", a.PutScheduleHandler)
			providers.GET("/services", a.ListProviderServicesHandler)
			providers.GET("/availability", a.GetAvailabilityHandler)
		}
		api.GET("/services", a.ListServicesHandler)

		api.POST("/wizard", a.StartWizardHandler)
		wizard := api.Group("/wizard/:session")
		{
			wizard.GET("", a.CurrentStepHandler)
			wizard.DELETE("", a.RestartHandler)
			wizard.GET("/steps/:step", a.EnterStepHandler)
			wizard.PUT("/steps/:step", a.ChooseStepHandler)
			wizard.POST("/back", a.BackStepHandler)
			wizard.POST("/confirm", a.ConfirmHandler)
		}

		api.POST("/appointments", a.CreateAppointmentHandler)
		api.GET("/appointments", a.ListAppointmentsHandler)
		api.PATCH("/appointments/:id/status", a.UpdateAppointmentStatusHandler)

		// Google Calendar integration routes
		api.GET("/calendar/auth", a.GoogleAuthHandler)
	}
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
	}
}
