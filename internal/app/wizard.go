package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"appointment-service/internal/booking"
)

// POST /wizard
// Opens a new session and returns its first step.
func (a *App) StartWizardHandler(c *gin.Context) {
	session := uuid.NewString()
	view, err := a.Wizard.Current(c.Request.Context(), session)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session, "view": view})
}

// GET /wizard/:session
func (a *App) CurrentStepHandler(c *gin.Context) {
	view, err := a.Wizard.Current(c.Request.Context(), c.Param("session"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /wizard/:session/steps/:step
func (a *App) EnterStepHandler(c *gin.Context) {
	step, err := booking.ParseStep(c.Param("step"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.Wizard.Enter(c.Request.Context(), c.Param("session"), step)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type chooseReq struct {
	Value string `json:"value" binding:"required"`
}

// PUT /wizard/:session/steps/:step
func (a *App) ChooseStepHandler(c *gin.Context) {
	step, err := booking.ParseStep(c.Param("step"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	var req chooseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := a.Wizard.Choose(c.Request.Context(), c.Param("session"), step, req.Value)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type backReq struct {
	From string `json:"from" binding:"required"`
}

// POST /wizard/:session/back
func (a *App) BackStepHandler(c *gin.Context) {
	var req backReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	from, err := booking.ParseStep(req.From)
	if err != nil {
		a.respondError(c, err)
		return
	}
	view, err := a.Wizard.Back(c.Request.Context(), c.Param("session"), from)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type confirmReq struct {
	Note string `json:"note,omitempty"`
}

// POST /wizard/:session/confirm
// Answers 201 with the booked view, or 200 with a redirect when steps are missing.
func (a *App) ConfirmHandler(c *gin.Context) {
	user, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req confirmReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	view, err := a.Wizard.Confirm(c.Request.Context(), c.Param("session"), user, req.Note)
	if err != nil {
		a.respondError(c, err)
		return
	}
	status := http.StatusOK
	if view.Step == booking.StepBooked {
		status = http.StatusCreated
	}
	c.JSON(status, view)
}

// DELETE /wizard/:session
func (a *App) RestartHandler(c *gin.Context) {
	if err := a.Wizard.Restart(c.Request.Context(), c.Param("session")); err != nil {
		a.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
