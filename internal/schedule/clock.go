package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	H int
	M int
}

// ParseClock accepts exactly "HH:MM" or the Postgres TIME rendering "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) == 8 {
		if s[5] != ':' || !digits(s[6:]) {
			return Clock{}, fmt.Errorf("invalid time string: %q", s)
		}
		if sec, _ := strconv.Atoi(s[6:]); sec > 59 {
			return Clock{}, fmt.Errorf("invalid time string: %q", s)
		}
		s = s[:5]
	}
	if len(s) != 5 || s[2] != ':' || !digits(s[:2]) || !digits(s[3:]) {
		return Clock{}, fmt.Errorf("invalid time string: %q", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return Clock{}, fmt.Errorf("invalid time string: %q", s)
	}
	return Clock{H: h, M: m}, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (c Clock) Minutes() int { return c.H*60 + c.M }

func (c Clock) Before(o Clock) bool { return c.Minutes() < o.Minutes() }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.H, c.M) }

// On places the clock on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.H, c.M, 0, 0, date.Location())
}
