package schedule

import "time"

const DateLayout = "2006-01-02"

// TimeSlot is one bookable interval of an AvailabilityDay.
type TimeSlot struct {
	ID        string    `json:"id"`
	Time      string    `json:"time"`
	Available bool      `json:"available"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// GenerateSlots chunks [start, end) on date into consecutive slots of length d.
// A trailing remainder shorter than d is dropped.
func GenerateSlots(date time.Time, start, end Clock, d time.Duration) []TimeSlot {
	if d <= 0 || !start.Before(end) {
		return nil
	}
	dayStart := start.On(date)
	dayEnd := end.On(date)
	day := date.Format(DateLayout)

	var out []TimeSlot
	for s := dayStart; !s.Add(d).After(dayEnd); s = s.Add(d) {
		hhmm := s.Format("15:04")
		out = append(out, TimeSlot{
			ID:        day + "-" + hhmm,
			Time:      hhmm,
			Available: true,
			Start:     s,
			End:       s.Add(d),
		})
	}
	return out
}
