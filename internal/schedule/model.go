package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// DaySchedule is one weekday's working-hours range. DayOfWeek runs 1..7 with Monday=1.
type DaySchedule struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

// WeeklySchedule is a provider's recurring availability.
type WeeklySchedule struct {
	ProviderID string        `json:"provider_id"`
	Days       []DaySchedule `json:"days"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
}

// ConvertWeekday maps a Sunday-first weekday index (0..6) onto the Monday-first
// numbering used by DaySchedule (1..7).
func ConvertWeekday(jsDay int) int {
	if jsDay == 0 {
		return 7
	}
	return jsDay
}

// ISOWeekday returns the DaySchedule weekday of t.
func ISOWeekday(t time.Time) int {
	return ConvertWeekday(int(t.Weekday()))
}

// Validate checks every entry and rejects a second range for the same weekday.
func (ws WeeklySchedule) Validate() error {
	seen := map[int]bool{}
	for i, d := range ws.Days {
		if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
			return fmt.Errorf("%w: days[%d]: day_of_week %d out of range 1..7", ErrInvalidSchedule, i, d.DayOfWeek)
		}
		if seen[d.DayOfWeek] {
			return fmt.Errorf("%w: days[%d]: duplicate range for day %d", ErrInvalidSchedule, i, d.DayOfWeek)
		}
		seen[d.DayOfWeek] = true

		if !d.Available {
			continue
		}
		start, err := ParseClock(d.StartTime)
		if err != nil {
			return fmt.Errorf("%w: days[%d]: %v", ErrInvalidSchedule, i, err)
		}
		end, err := ParseClock(d.EndTime)
		if err != nil {
			return fmt.Errorf("%w: days[%d]: %v", ErrInvalidSchedule, i, err)
		}
		if !start.Before(end) {
			return fmt.Errorf("%w: days[%d]: start %s >= end %s", ErrInvalidSchedule, i, start, end)
		}
	}
	return nil
}

// ForWeekday returns the available range for weekday d (1..7).
func (ws WeeklySchedule) ForWeekday(d int) (DaySchedule, bool) {
	for _, ds := range ws.Days {
		if ds.DayOfWeek == d && ds.Available {
			return ds, true
		}
	}
	return DaySchedule{}, false
}

// Empty reports whether the schedule has no entries at all.
func (ws *WeeklySchedule) Empty() bool {
	return ws == nil || len(ws.Days) == 0
}

// Sort orders the days Monday first.
func (ws *WeeklySchedule) Sort() {
	sort.SliceStable(ws.Days, func(i, j int) bool { return ws.Days[i].DayOfWeek < ws.Days[j].DayOfWeek })
}

// DefaultSchedule builds the fallback used for providers without a stored
// schedule: the listed weekdays available between start and end, the rest closed.
func DefaultSchedule(days []int, start, end string) (WeeklySchedule, error) {
	open := map[int]bool{}
	for _, d := range days {
		open[d] = true
	}
	ws := WeeklySchedule{}
	for d := 1; d <= 7; d++ {
		ws.Days = append(ws.Days, DaySchedule{
			DayOfWeek: d,
			StartTime: start,
			EndTime:   end,
			Available: open[d],
		})
	}
	if err := ws.Validate(); err != nil {
		return WeeklySchedule{}, err
	}
	return ws, nil
}
