package popup

import (
	"errors"
	"time"
)

var ErrMoveInOutsideWindow = errors.New("popup: move-in date outside the bookable window")

const bookableMonths = 2

// Window is the inclusive range of selectable move-in days.
type Window struct {
	Min time.Time
	Max time.Time
}

// WindowFrom starts the window on the calendar day of now, in now's location.
func WindowFrom(now time.Time) Window {
	today := Day(now)
	return Window{Min: today, Max: today.AddDate(0, bookableMonths, 0)}
}

// Contains compares at day granularity.
func (w Window) Contains(d time.Time) bool {
	day := Day(d.In(w.Min.Location()))
	return !day.Before(w.Min) && !day.After(w.Max)
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
