package testfixtures

import (
	"sync"
	"time"

	"github.com/example/seatserve/internal/booking"
)

// Clock provides a controllable time source for tests.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock initialised to the supplied time. When start is the
// zero value, the shared ReferenceTime is used.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now as a function suitable for dependency injection.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set updates the clock to the provided time.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetIST moves the clock to hour:minute India Standard Time on day.
func (c *Clock) SetIST(day booking.Date, hour, minute int) time.Time {
	t := AtIST(day, hour, minute)
	c.Set(t)
	return t
}

// Advance moves the clock forward by the provided duration and returns the
// updated time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}

// Today is the booking calendar day at the current instant.
func (c *Clock) Today() booking.Date {
	return booking.DefaultPolicy().Today(c.Now())
}

// AtIST returns the UTC instant of hour:minute IST on day.
func AtIST(day booking.Date, hour, minute int) time.Time {
	return day.StartOfDay(time.UTC).
		Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).
		Add(-istOffset).
		UTC()
}

const istOffset = 5*time.Hour + 30*time.Minute
