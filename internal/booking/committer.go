package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-service/internal/metrics"
	"appointment-service/internal/schedule"
)

// AppointmentWriter stores an appointment together with its calendar-event row
// in one transaction and returns ErrSlotUnavailable on an overlap.
type AppointmentWriter interface {
	CreateAppointment(ctx context.Context, a *Appointment) (string, error)
}

// CalendarMirror copies a committed appointment to an external calendar.
type CalendarMirror interface {
	Mirror(ctx context.Context, a Appointment) error
}

type CommitRequest struct {
	Session   string
	Selection Selection
	Provider  Provider
	Service   ServiceOffering
	User      Identity
}

// Committer turns a complete selection into a scheduled appointment.
type Committer struct {
	writer   AppointmentWriter
	catalog  Catalog
	expander *schedule.Expander
	store    SelectionStore
	mirror   CalendarMirror
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger
	now      func() time.Time
}

type CommitterDeps struct {
	Writer   AppointmentWriter
	Catalog  Catalog
	Expander *schedule.Expander
	Store    SelectionStore
	Mirror   CalendarMirror
	Metrics  *metrics.BookingMetrics
	Logger   *zap.Logger
}

func NewCommitter(d CommitterDeps) *Committer {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Committer{
		writer:   d.Writer,
		catalog:  d.Catalog,
		expander: d.Expander,
		store:    d.Store,
		mirror:   d.Mirror,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// Build validates the request and returns the appointment that would be written.
func (c *Committer) Build(ctx context.Context, req CommitRequest) (*Appointment, error) {
	sel := req.Selection
	if !sel.Complete() {
		return nil, fmt.Errorf("%w: selection incomplete", ErrInvalidSelection)
	}
	if req.User.UID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidSelection)
	}
	if req.Provider.ID != sel.SpecialistID || req.Service.ID != sel.ServiceID {
		return nil, fmt.Errorf("%w: provider or service does not match selection", ErrInvalidSelection)
	}
	if !req.Service.OfferedBy(sel.SpecialistID) {
		return nil, fmt.Errorf("%w: service %s not offered by %s", ErrInvalidSelection, sel.ServiceID, sel.SpecialistID)
	}
	if req.Service.Duration <= 0 {
		return nil, fmt.Errorf("%w: service %s has no duration", ErrInvalidSelection, sel.ServiceID)
	}

	loc := c.expander.Location()
	start, err := StartAt(sel.Date, sel.Time, loc)
	if err != nil {
		return nil, err
	}
	// Bookable dates run from tomorrow through the maximum horizon.
	from, until := c.expander.Window(c.now(), c.expander.MaxHorizonDays())
	if start.Before(from) || !start.Before(until) {
		return nil, fmt.Errorf("%w: %s is outside %s..%s", ErrSlotUnavailable, sel.Date,
			from.Format(schedule.DateLayout), until.AddDate(0, 0, -1).Format(schedule.DateLayout))
	}
	if err := c.checkSchedule(ctx, sel, start); err != nil {
		return nil, err
	}

	end, err := EndTime(sel.Time, req.Service.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}

	return &Appointment{
		ID:             uuid.NewString(),
		UserID:         req.User.UID,
		SpecialistID:   req.Provider.ID,
		SpecialistName: req.Provider.Name,
		ServiceID:      req.Service.ID,
		ServiceName:    req.Service.Name,
		Date:           sel.Date,
		StartTime:      start.Format("15:04"),
		EndTime:        end,
		StartAt:        start,
		EndAt:          start.Add(time.Duration(req.Service.Duration) * time.Minute),
		Status:         StatusScheduled,
		Notes:          sel.Note,
		Price:          req.Service.Price,
		CreatedAt:      c.now().UTC(),
	}, nil
}

// checkSchedule verifies the start lies on the provider's slot grid for that day.
func (c *Committer) checkSchedule(ctx context.Context, sel Selection, start time.Time) error {
	ws, err := c.catalog.ReadSchedule(ctx, sel.SpecialistID)
	if err != nil {
		return newWriteError(fmt.Errorf("read schedule: %w", err))
	}
	eff := c.expander.Effective(ws, sel.SpecialistID)
	ds, ok := eff.ForWeekday(schedule.ISOWeekday(start))
	if !ok {
		return fmt.Errorf("%w: specialist does not work on %s", ErrSlotUnavailable, start.Weekday())
	}
	from, _ := schedule.ParseClock(ds.StartTime)
	to, _ := schedule.ParseClock(ds.EndTime)
	day := schedule.AvailabilityDay{Slots: schedule.GenerateSlots(start, from, to, c.expander.SlotDuration())}
	if _, ok := day.FindSlot(sel.Time); !ok {
		return fmt.Errorf("%w: %s is not an offered time", ErrSlotUnavailable, sel.Time)
	}
	return nil
}

// Commit writes the appointment. On success the session's selection is cleared
// and the external calendar mirror is attempted; mirror failures are only logged.
func (c *Committer) Commit(ctx context.Context, req CommitRequest) (*Appointment, error) {
	appt, err := c.Build(ctx, req)
	if err != nil {
		c.observeFailure(err)
		return nil, err
	}

	began := time.Now()
	id, err := c.writer.CreateAppointment(ctx, appt)
	c.metrics.ObserveCommitLatency(time.Since(began).Seconds())
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			c.metrics.ObserveCommit("conflict")
			c.logger.Info("slot taken at commit",
				zap.String("provider_id", appt.SpecialistID),
				zap.Time("start_at", appt.StartAt))
			return nil, err
		}
		c.metrics.ObserveCommit("write_failed")
		c.logger.Error("appointment write failed",
			zap.String("provider_id", appt.SpecialistID),
			zap.String("session", req.Session),
			zap.Error(err))
		return nil, newWriteError(err)
	}
	appt.ID = id
	c.metrics.ObserveCommit("success")

	if req.Session != "" && c.store != nil {
		if err := c.store.Clear(ctx, req.Session); err != nil {
			c.logger.Warn("could not clear selection after commit",
				zap.String("session", req.Session), zap.Error(err))
		}
	}

	if c.mirror != nil {
		if err := c.mirror.Mirror(ctx, *appt); err != nil {
			c.metrics.ObserveMirrorFailure()
			c.logger.Warn("calendar mirror failed",
				zap.String("appointment_id", appt.ID), zap.Error(err))
		}
	}

	c.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("provider_id", appt.SpecialistID),
		zap.String("date", appt.Date),
		zap.String("start", appt.StartTime))
	return appt, nil
}

func (c *Committer) observeFailure(err error) {
	var ce *CommitError
	switch {
	case errors.Is(err, ErrSlotUnavailable):
		c.metrics.ObserveCommit("conflict")
	case errors.As(err, &ce):
		c.metrics.ObserveCommit("write_failed")
	default:
		c.metrics.ObserveCommit("invalid")
	}
}
