package schedule

import (
	"time"

	"go.uber.org/zap"
)

// AvailabilityDay is a concrete calendar date with its offerable slots.
type AvailabilityDay struct {
	Date          string     `json:"date"`
	FormattedDate string     `json:"formatted_date"`
	DayName       string     `json:"day_name"`
	Slots         []TimeSlot `json:"slots"`
}

// Interval is a committed [Start, End) reservation.
type Interval struct {
	Start time.Time
	End   time.Time
}

type ExpanderConfig struct {
	HorizonDays    int
	MaxHorizonDays int
	SlotDuration   time.Duration
	Default        WeeklySchedule
	Location       *time.Location
}

// Expander turns weekly schedules into dated availability over a forward horizon.
type Expander struct {
	cfg    ExpanderConfig
	logger *zap.Logger
}

func NewExpander(cfg ExpanderConfig, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 28
	}
	if cfg.MaxHorizonDays < cfg.HorizonDays {
		cfg.MaxHorizonDays = cfg.HorizonDays
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = time.Hour
	}
	return &Expander{cfg: cfg, logger: logger}
}

func (e *Expander) Location() *time.Location { return e.cfg.Location }

func (e *Expander) SlotDuration() time.Duration { return e.cfg.SlotDuration }

func (e *Expander) MaxHorizonDays() int { return e.cfg.MaxHorizonDays }

// ClampHorizon bounds a requested horizon to 1..MaxHorizonDays; 0 selects the default.
func (e *Expander) ClampHorizon(n int) int {
	switch {
	case n == 0:
		return e.cfg.HorizonDays
	case n < 1:
		return 1
	case n > e.cfg.MaxHorizonDays:
		return e.cfg.MaxHorizonDays
	}
	return n
}

// Effective returns ws, or the configured default when ws is missing or malformed.
func (e *Expander) Effective(ws *WeeklySchedule, providerID string) WeeklySchedule {
	if ws.Empty() {
		e.logger.Warn("no weekly schedule stored, using default",
			zap.String("provider_id", providerID))
		return e.cfg.Default
	}
	if err := ws.Validate(); err != nil {
		e.logger.Warn("malformed weekly schedule, using default",
			zap.String("provider_id", providerID), zap.Error(err))
		return e.cfg.Default
	}
	return *ws
}

// Expand offers the days after today up to the default horizon.
func (e *Expander) Expand(ws *WeeklySchedule, providerID string, today time.Time) []AvailabilityDay {
	return e.ExpandN(ws, providerID, today, e.cfg.HorizonDays)
}

// ExpandN walks today+1 .. today+n and returns the days with an available range,
// in chronological order. An empty result is a normal outcome.
func (e *Expander) ExpandN(ws *WeeklySchedule, providerID string, today time.Time, n int) []AvailabilityDay {
	eff := e.Effective(ws, providerID)
	today = today.In(e.cfg.Location)
	y, m, d := today.Date()

	var out []AvailabilityDay
	for i := 1; i <= n; i++ {
		date := time.Date(y, m, d+i, 0, 0, 0, 0, e.cfg.Location)
		ds, ok := eff.ForWeekday(ISOWeekday(date))
		if !ok {
			continue
		}
		// Effective already validated the schedule.
		start, _ := ParseClock(ds.StartTime)
		end, _ := ParseClock(ds.EndTime)
		out = append(out, AvailabilityDay{
			Date:          date.Format(DateLayout),
			FormattedDate: date.Format("Jan 2, 2006"),
			DayName:       date.Weekday().String(),
			Slots:         GenerateSlots(date, start, end, e.cfg.SlotDuration),
		})
	}
	if len(out) == 0 {
		e.logger.Debug("expansion produced no days",
			zap.String("provider_id", providerID), zap.Int("horizon", n))
	}
	return out
}

// Window returns the [from, to) range covered by a horizon of n days after today.
func (e *Expander) Window(today time.Time, n int) (time.Time, time.Time) {
	y, m, d := today.In(e.cfg.Location).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, e.cfg.Location), time.Date(y, m, d+n+1, 0, 0, 0, 0, e.cfg.Location)
}

// MarkBooked flags every slot overlapping a busy interval as unavailable.
func MarkBooked(days []AvailabilityDay, busy []Interval) {
	if len(busy) == 0 {
		return
	}
	for i := range days {
		for j := range days[i].Slots {
			s := &days[i].Slots[j]
			for _, b := range busy {
				if s.Start.Before(b.End) && b.Start.Before(s.End) {
					s.Available = false
					break
				}
			}
		}
	}
}

// FindDay returns the day with the given date.
func FindDay(days []AvailabilityDay, date string) (AvailabilityDay, bool) {
	for _, d := range days {
		if d.Date == date {
			return d, true
		}
	}
	return AvailabilityDay{}, false
}

// FindSlot returns the slot starting at hhmm.
func (d AvailabilityDay) FindSlot(hhmm string) (TimeSlot, bool) {
	for _, s := range d.Slots {
		if s.Time == hhmm {
			return s, true
		}
	}
	return TimeSlot{}, false
}
