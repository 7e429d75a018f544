package booking

import (
	"fmt"
	"time"
)

// MaxCalendarDays bounds CalendarRange so a single request cannot walk years.
const MaxCalendarDays = 62

// ErrCalendarRangeTooLong is returned by CalendarRange for spans over
// MaxCalendarDays.
var ErrCalendarRangeTooLong = fmt.Errorf("booking: calendar range exceeds %d days", MaxCalendarDays)

// DayStatus describes one calendar cell.
type DayStatus struct {
	Date       Date
	Bookable   bool
	Selectable bool
	Holiday    string
	Reason     Reason
}

// CalendarSpan returns the number of days from..to covers, inclusive.
func CalendarSpan(from, to Date) int {
	return from.DaysUntil(to) + 1
}

// CalendarRange describes every day from..to inclusive for the given employee.
// An inverted range yields no days.
func (p Policy) CalendarRange(from, to Date, snap Snapshot, now time.Time, employeeID string) ([]DayStatus, error) {
	if to.Before(from) {
		return nil, nil
	}
	span := CalendarSpan(from, to)
	if span > MaxCalendarDays {
		return nil, ErrCalendarRangeTooLong
	}
	holidays := snap.HolidaySet()
	out := make([]DayStatus, 0, span)
	for day := from; !day.After(to); day = day.AddDays(1) {
		status := DayStatus{Date: day, Holiday: holidays[day]}
		if err := p.CheckDate(day, holidays, now); err != nil {
			status.Reason, _ = ReasonOf(err)
		} else {
			status.Bookable = true
		}
		status.Selectable = p.IsDateSelectable(day, holidays, now, snap.Bookings, employeeID)
		out = append(out, status)
	}
	return out, nil
}
