package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"appointment-service/internal/booking"
	"appointment-service/internal/schedule"
)

// Repository is everything the handlers read from or write to Postgres.
type Repository interface {
	booking.Catalog
	SaveSchedule(ctx context.Context, ws schedule.WeeklySchedule) error
	ListAppointmentsForUser(ctx context.Context, userID string) ([]booking.Appointment, error)
	ReadAppointment(ctx context.Context, id string) (*booking.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
}

// CalendarLinker runs the Google consent flow for a provider.
type CalendarLinker interface {
	AuthURL(providerID string, now time.Time) (string, string, error)
	Complete(ctx context.Context, code, state string) (string, error)
}

type App struct {
	Repo         Repository
	Expander     *schedule.Expander
	Availability *booking.Availability
	Wizard       *booking.Wizard
	Committer    *booking.Committer
	// Calendar is nil when Google credentials are not configured.
	Calendar CalendarLinker
	Logger   *zap.Logger
}

func (a *App) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// respondError maps domain errors onto status codes. Unknown errors are logged
// and hidden behind a generic message.
func (a *App) respondError(c *gin.Context, err error) {
	var ce *booking.CommitError
	switch {
	case errors.Is(err, booking.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "slot_unavailable"})
	case errors.As(err, &ce) && ce.Retryable:
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ce.Message, "code": ce.Code, "retryable": true})
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_transition"})
	case errors.Is(err, booking.ErrInvalidChoice),
		errors.Is(err, booking.ErrInvalidSelection),
		errors.Is(err, booking.ErrMissingSession),
		errors.Is(err, schedule.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		a.logger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
