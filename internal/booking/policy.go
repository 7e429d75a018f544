// Package booking decides whether desk bookings and cancellations are allowed.
//
// Every function here is pure: callers pass the current instant and an in-memory
// snapshot, and receive a verdict. Nothing in this package performs I/O.
package booking

import (
	"sort"
	"time"
)

const (
	defaultCutoffHour         = 14
	defaultCutoffOffset       = 5*time.Hour + 30*time.Minute
	defaultHorizonWorkingDays = 2
)

// Policy holds the tunable parameters of the booking rules.
type Policy struct {
	// Location resolves instants to calendar days.
	Location *time.Location
	// CutoffHour is the hour, in the cutoff offset, from which same-day changes are refused.
	CutoffHour int
	// CutoffOffset is added to the UTC instant before reading the hour.
	CutoffOffset time.Duration
	// HorizonWorkingDays is how many future working days can be booked.
	HorizonWorkingDays int
}

// DefaultPolicy returns the production rules: days resolved at UTC+05:30,
// 14:00 IST cutoff, two working days of horizon.
func DefaultPolicy() Policy {
	return Policy{
		Location:           time.FixedZone("IST", int(defaultCutoffOffset/time.Second)),
		CutoffHour:         defaultCutoffHour,
		CutoffOffset:       defaultCutoffOffset,
		HorizonWorkingDays: defaultHorizonWorkingDays,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Location == nil {
		p.Location = def.Location
	}
	if p.CutoffHour <= 0 {
		p.CutoffHour = def.CutoffHour
	}
	if p.CutoffOffset == 0 {
		p.CutoffOffset = def.CutoffOffset
	}
	if p.HorizonWorkingDays <= 0 {
		p.HorizonWorkingDays = def.HorizonWorkingDays
	}
	return p
}

// Today returns the calendar day containing now.
func (p Policy) Today(now time.Time) Date {
	p = p.normalized()
	return DateOf(now, p.Location)
}

// PastCutoff reports whether now is at or after the same-day cutoff.
// The offset is applied arithmetically to the UTC instant.
func (p Policy) PastCutoff(now time.Time) bool {
	p = p.normalized()
	return now.UTC().Add(p.CutoffOffset).Hour() >= p.CutoffHour
}

// IsWorkingDay reports whether d is neither a weekend day nor a holiday.
func IsWorkingDay(d Date, holidays HolidaySet) bool {
	return !d.IsWeekend() && !holidays.Contains(d)
}

// Horizon returns the last bookable day: walking forward from tomorrow, the day
// on which the count of working days reaches HorizonWorkingDays.
func (p Policy) Horizon(now time.Time, holidays HolidaySet) Date {
	p = p.normalized()
	day := p.Today(now)
	count := 0
	for count < p.HorizonWorkingDays {
		day = day.AddDays(1)
		if IsWorkingDay(day, holidays) {
			count++
		}
	}
	return day
}

// CheckDate returns a Rejection when d cannot be booked at all, checking
// weekend, holiday, past date and horizon in that order.
func (p Policy) CheckDate(d Date, holidays HolidaySet, now time.Time) error {
	p = p.normalized()
	switch {
	case d.IsWeekend():
		return reject(ReasonWeekend, ActionCreate)
	case holidays.Contains(d):
		return reject(ReasonHoliday, ActionCreate)
	case d.Before(p.Today(now)):
		return reject(ReasonPastDate, ActionCreate)
	case d.After(p.Horizon(now, holidays)):
		rej := reject(ReasonOutOfHorizon, ActionCreate)
		rej.Limit = p.HorizonWorkingDays
		return rej
	}
	return nil
}

// IsDateBookable reports whether d is a working day between today and the horizon.
func (p Policy) IsDateBookable(d Date, holidays HolidaySet, now time.Time) bool {
	return p.CheckDate(d, holidays, now) == nil
}

// IsDateSelectable extends IsDateBookable for display: a past day on which the
// employee already holds a booking stays selectable so history can be viewed.
// It never authorizes creating a booking.
func (p Policy) IsDateSelectable(d Date, holidays HolidaySet, now time.Time, bookings []Booking, employeeID string) bool {
	if p.IsDateBookable(d, holidays, now) {
		return true
	}
	if !d.Before(p.Today(now)) || employeeID == "" {
		return false
	}
	for _, b := range bookings {
		if b.Date == d && b.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

// Request is a candidate booking.
type Request struct {
	EmployeeID string
	DeskID     string
	Date       Date
}

// CanCreateBooking checks req against snap and returns nil or a *Rejection.
// Checks run in order and stop at the first failure: weekend, same-day cutoff,
// one booking per employee per day, one booking per desk per day.
func (p Policy) CanCreateBooking(req Request, snap Snapshot, now time.Time) error {
	p = p.normalized()
	if req.Date.IsWeekend() {
		return reject(ReasonWeekend, ActionCreate)
	}
	if req.Date == p.Today(now) && p.PastCutoff(now) {
		return p.cutoffRejection(ActionCreate)
	}
	sameDay := snap.BookingsOn(req.Date)
	for _, b := range sameDay {
		if b.EmployeeID == req.EmployeeID {
			return reject(ReasonDoubleBookingEmployee, ActionCreate)
		}
	}
	for _, b := range sameDay {
		if b.DeskID == req.DeskID {
			return reject(ReasonDoubleBookingDesk, ActionCreate)
		}
	}
	return nil
}

// CanCancelBooking refuses cancelling a booking for today once the cutoff has passed.
// Past and future bookings are always cancellable.
func (p Policy) CanCancelBooking(b Booking, now time.Time) error {
	p = p.normalized()
	if b.Date == p.Today(now) && p.PastCutoff(now) {
		return p.cutoffRejection(ActionCancel)
	}
	return nil
}

func (p Policy) cutoffRejection(action Action) *Rejection {
	rej := reject(ReasonCutoff, action)
	rej.Limit = p.CutoffHour
	return rej
}

// AvailableDesks returns the IDs of desks with no booking on d, sorted ascending.
func AvailableDesks(d Date, desks []Desk, bookings []Booking) []string {
	taken := make(map[string]struct{})
	for _, b := range bookings {
		if b.Date == d {
			taken[b.DeskID] = struct{}{}
		}
	}
	free := make([]string, 0, len(desks))
	for _, desk := range desks {
		if _, ok := taken[desk.ID]; ok {
			continue
		}
		free = append(free, desk.ID)
	}
	sort.Strings(free)
	return free
}
