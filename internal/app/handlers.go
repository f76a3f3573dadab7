package app

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-service/internal/booking"
	"appointment-service/internal/schedule"
)

// GET /providers
func (a *App) ListProvidersHandler(c *gin.Context) {
	providers, err := a.Repo.ListProviders(c.Request.Context())
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

// GET /providers/:id/schedule
// Providers without stored rules get the configured default week.
func (a *App) GetScheduleHandler(c *gin.Context) {
	providerID := c.Param("id")
	ctx := c.Request.Context()

	if _, err := a.Repo.ReadProvider(ctx, providerID); err != nil {
		a.respondError(c, err)
		return
	}
	ws, err := a.Repo.ReadSchedule(ctx, providerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule":   a.Expander.Effective(ws, providerID),
		"is_default": ws.Empty(),
	})
}

type scheduleReq struct {
	Days []schedule.DaySchedule `json:"days"`
}

// PUT /providers/:id/schedule
// Replaces the whole week; weekdays missing from the body are not offered.
// Only the provider itself or an admin may do this.
func (a *App) PutScheduleHandler(c *gin.Context) {
	providerID := c.Param("id")
	if !requireManager(c, providerID) {
		return
	}
	var req scheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	if _, err := a.Repo.ReadProvider(ctx, providerID); err != nil {
		a.respondError(c, err)
		return
	}
	ws := schedule.WeeklySchedule{ProviderID: providerID, Days: req.Days}
	if err := a.Repo.SaveSchedule(ctx, ws); err != nil {
		a.respondError(c, err)
		return
	}
	ws.Sort()
	a.logger().Info("schedule saved", zap.String("provider_id", providerID), zap.Int("days", len(ws.Days)))
	c.JSON(http.StatusOK, ws)
}

// GET /providers/:id/services?category=
func (a *App) ListProviderServicesHandler(c *gin.Context) {
	providerID := c.Param("id")
	ctx := c.Request.Context()

	if _, err := a.Repo.ReadProvider(ctx, providerID); err != nil {
		a.respondError(c, err)
		return
	}
	services, err := a.Repo.ReadServices(ctx, providerID, c.Query("category"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

// GET /services?category=
// Lists the whole service catalog.
func (a *App) ListServicesHandler(c *gin.Context) {
	services, err := a.Repo.ReadServices(c.Request.Context(), "", c.Query("category"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

// GET /providers/:id/availability?horizon=
func (a *App) GetAvailabilityHandler(c *gin.Context) {
	providerID := c.Param("id")
	horizon := 0
	if h := c.Query("horizon"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be a positive number of days"})
			return
		}
		horizon = n
	}
	ctx := c.Request.Context()

	if _, err := a.Repo.ReadProvider(ctx, providerID); err != nil {
		a.respondError(c, err)
		return
	}
	days, err := a.Availability.ForProvider(ctx, providerID, horizon)
	if err != nil {
		a.respondError(c, err)
		return
	}
	resp := gin.H{
		"provider_id": providerID,
		"horizon":     a.Expander.ClampHorizon(horizon),
		"days":        days,
	}
	if len(days) == 0 {
		resp["empty"] = booking.NoAvailabilityMessage
	}
	c.JSON(http.StatusOK, resp)
}

type createAppointmentReq struct {
	SpecialistID string `json:"specialist_id" binding:"required"`
	ServiceID    string `json:"service_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Note         string `json:"note,omitempty"`
}

// POST /appointments
// Books in one request without a wizard session.
func (a *App) CreateAppointmentHandler(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req createAppointmentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	provider, err := a.Repo.ReadProvider(ctx, req.SpecialistID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	service, err := a.Repo.ReadService(ctx, req.ServiceID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	appt, err := a.Committer.Commit(ctx, booking.CommitRequest{
		Selection: booking.Selection{
			SpecialistID: req.SpecialistID,
			ServiceID:    req.ServiceID,
			Date:         strings.TrimSpace(req.Date),
			Time:         strings.TrimSpace(req.Time),
			Note:         strings.TrimSpace(req.Note),
		},
		Provider: *provider,
		Service:  *service,
		User:     user,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// GET /appointments
// Lists the caller's own appointments.
func (a *App) ListAppointmentsHandler(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	appts, err := a.Repo.ListAppointmentsForUser(c.Request.Context(), user.UID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if appts == nil {
		appts = []booking.Appointment{}
	}
	c.JSON(http.StatusOK, appts)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /appointments/:id/status
// Appointments are never deleted; cancelling is a status change.
func (a *App) UpdateAppointmentStatusHandler(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	parsed, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
		return
	}
	id := parsed.String()
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	appt, err := a.Repo.ReadAppointment(ctx, id)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if appt.UserID != user.UID && appt.SpecialistID != user.UID {
		c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
		return
	}
	if err := a.Repo.UpdateAppointmentStatus(ctx, id, req.Status); err != nil {
		a.respondError(c, err)
		return
	}
	appt.Status = req.Status
	a.logger().Info("appointment status changed",
		zap.String("appointment_id", id), zap.String("status", req.Status))
	c.JSON(http.StatusOK, appt)
}
