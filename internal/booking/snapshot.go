package booking

import "time"

// Desk is a bookable seat. Its ID has the form <building>.<wing>.<room-code>.<number>.
type Desk struct {
	ID string
}

// Booking reserves one desk for one employee on one calendar day.
type Booking struct {
	ID           string
	DeskID       string
	Date         Date
	EmployeeID   string
	EmployeeName string
}

// Holiday marks a calendar day on which no desk can be booked.
type Holiday struct {
	ID   string
	Date Date
	Name string
}

// Snapshot is an immutable view of all desks, bookings and holidays at one instant.
type Snapshot struct {
	Desks    []Desk
	Bookings []Booking
	Holidays []Holiday
	TakenAt  time.Time
}

// HolidaySet indexes holidays by date.
type HolidaySet map[Date]string

// NewHolidaySet builds a HolidaySet from a holiday list.
func NewHolidaySet(holidays []Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[h.Date] = h.Name
	}
	return set
}

// Contains reports whether d is a holiday.
func (s HolidaySet) Contains(d Date) bool {
	if s == nil {
		return false
	}
	_, ok := s[d]
	return ok
}

// HolidaySet returns the snapshot holidays indexed by date.
func (s Snapshot) HolidaySet() HolidaySet {
	return NewHolidaySet(s.Holidays)
}

// BookingsOn returns the bookings dated d.
func (s Snapshot) BookingsOn(d Date) []Booking {
	return bookingsOn(s.Bookings, d)
}

func bookingsOn(bookings []Booking, d Date) []Booking {
	var out []Booking
	for _, b := range bookings {
		if b.Date == d {
			out = append(out, b)
		}
	}
	return out
}
