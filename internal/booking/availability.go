package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"appointment-service/internal/metrics"
	"appointment-service/internal/schedule"
)

// Catalog is the read side of the persistence adapter.
type Catalog interface {
	ListProviders(ctx context.Context) ([]Provider, error)
	ReadProvider(ctx context.Context, id string) (*Provider, error)
	ReadServices(ctx context.Context, providerID, category string) ([]ServiceOffering, error)
	ReadService(ctx context.Context, id string) (*ServiceOffering, error)
	ReadSchedule(ctx context.Context, providerID string) (*schedule.WeeklySchedule, error)
	ReadAppointmentsInRange(ctx context.Context, providerID string, from, to time.Time) ([]Appointment, error)
}

// NoAvailabilityMessage is shown when a provider has no offerable dates.
const NoAvailabilityMessage = "no dates available, try a longer horizon or another specialist"

// Availability expands a provider's schedule and marks slots taken by
// committed appointments.
type Availability struct {
	catalog  Catalog
	expander *schedule.Expander
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewAvailability(catalog Catalog, expander *schedule.Expander, m *metrics.BookingMetrics, logger *zap.Logger) *Availability {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Availability{
		catalog:  catalog,
		expander: expander,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ForProvider returns the offerable days after today. horizon 0 selects the default.
func (a *Availability) ForProvider(ctx context.Context, providerID string, horizon int) ([]schedule.AvailabilityDay, error) {
	ws, err := a.catalog.ReadSchedule(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("booking: read schedule: %w", err)
	}
	n := a.expander.ClampHorizon(horizon)
	today := a.now()
	days := a.expander.ExpandN(ws, providerID, today, n)
	if len(days) == 0 {
		a.metrics.ObserveEmptyAvailability()
		return days, nil
	}

	from, to := a.expander.Window(today, n)
	appts, err := a.catalog.ReadAppointmentsInRange(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("booking: read appointments: %w", err)
	}
	busy := make([]schedule.Interval, 0, len(appts))
	for _, ap := range appts {
		busy = append(busy, schedule.Interval{Start: ap.StartAt, End: ap.EndAt})
	}
	schedule.MarkBooked(days, busy)
	return days, nil
}
