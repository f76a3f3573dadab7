package booking

import (
	"fmt"
	"time"

	"appointment-service/internal/schedule"
)

// StartAt combines a "2006-01-02" date and an "HH:MM" time in loc.
func StartAt(date, hhmm string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(schedule.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidSelection, date)
	}
	c, err := schedule.ParseClock(hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return c.On(day), nil
}

// EndTime adds minutes to an "HH:MM" start and wraps past midnight.
func EndTime(start string, minutes int) (string, error) {
	c, err := schedule.ParseClock(start)
	if err != nil {
		return "", err
	}
	if minutes < 0 {
		return "", fmt.Errorf("negative duration %d", minutes)
	}
	total := (c.Minutes() + minutes) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}
