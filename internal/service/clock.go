package service

import (
	"sync"
	"time"
)

// DateLayout is the format of every business date key.
const DateLayout = "2006-01-02"

// Clock abstracts the wall clock so day changes can be simulated.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in the business time zone.  When
// Override is set (YYYY-MM-DD) the date part is pinned to it while the time
// of day keeps moving, which is how staff test a "tomorrow" locally.
type SystemClock struct {
	Location *time.Location
	Override string
}

// Now returns the current time in the business zone.
func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	if c.Override == "" {
		return now
	}
	d, err := time.ParseInLocation(DateLayout, c.Override, loc)
	if err != nil {
		return now
	}
	return time.Date(d.Year(), d.Month(), d.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), loc)
}

// Today formats the clock's current date as a business date.
func Today(c Clock) string { return c.Now().Format(DateLayout) }

// Calendar holds the business date every component keys its state off.
// Only the rollover monitor moves it forward.
type Calendar struct {
	mu   sync.RWMutex
	date string
}

// NewCalendar starts the calendar at date.
func NewCalendar(date string) *Calendar { return &Calendar{date: date} }

// Date returns the current business date.
func (c *Calendar) Date() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.date
}

func (c *Calendar) set(date string) {
	c.mu.Lock()
	c.date = date
	c.mu.Unlock()
}

// monthBounds returns the first and last date of a month.
func monthBounds(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}
