package booking

import (
	"errors"
	"fmt"
)

// Reason is a machine readable tag explaining a policy rejection.
type Reason string

const (
	ReasonWeekend               Reason = "weekend"
	ReasonCutoff                Reason = "cutoff"
	ReasonDoubleBookingEmployee Reason = "double-booking-employee"
	ReasonDoubleBookingDesk     Reason = "double-booking-desk"
	ReasonHoliday               Reason = "holiday"
	ReasonOutOfHorizon          Reason = "out-of-horizon"
	ReasonPastDate              Reason = "past-date"
)

// Action distinguishes the operation a rejection applies to.
type Action string

const (
	ActionCreate Action = "create"
	ActionCancel Action = "cancel"
)

// Rejection is returned when a booking or cancellation violates the policy.
type Rejection struct {
	Reason Reason
	Action Action
	// Limit is the policy value behind the rejection: the cutoff hour for
	// ReasonCutoff, the horizon in working days for ReasonOutOfHorizon. Zero
	// selects the default.
	Limit int
}

func reject(reason Reason, action Action) *Rejection {
	return &Rejection{Reason: reason, Action: action}
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("booking: %s rejected: %s", r.Action, r.Reason)
}

// Message returns the sentence shown to the employee.
func (r *Rejection) Message() string {
	if r == nil {
		return ""
	}
	switch r.Reason {
	case ReasonWeekend:
		return "Bookings are not allowed on Saturdays or Sundays."
	case ReasonCutoff:
		until := clockHour(r.limitOr(defaultCutoffHour))
		if r.Action == ActionCancel {
			return "Same-day cancellations are only allowed until " + until + " IST."
		}
		return "Same-day bookings are only allowed until " + until + " IST."
	case ReasonDoubleBookingEmployee:
		return "You can only book one desk per day."
	case ReasonDoubleBookingDesk:
		return "This desk is already booked on this date."
	case ReasonHoliday:
		return "Bookings are not allowed on holidays."
	case ReasonPastDate:
		return "Bookings cannot be made for past dates."
	case ReasonOutOfHorizon:
		return "Bookings can only be made up to " + workingDays(r.limitOr(defaultHorizonWorkingDays)) + " in advance."
	default:
		return "This booking is not allowed."
	}
}

func (r *Rejection) limitOr(fallback int) int {
	if r.Limit > 0 {
		return r.Limit
	}
	return fallback
}

// clockHour renders 14 as "2 PM" and 0 as "12 AM".
func clockHour(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d %s", hour, suffix)
}

var numberWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func workingDays(n int) string {
	word := fmt.Sprint(n)
	if n >= 0 && n < len(numberWords) {
		word = numberWords[n]
	}
	if n == 1 {
		return word + " working day"
	}
	return word + " working days"
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) && rej != nil {
		return rej.Reason, true
	}
	return "", false
}

// NewRejection builds a create-action rejection. Storage layers use it to report
// uniqueness conflicts with the same shape as a policy check.
func NewRejection(reason Reason) *Rejection {
	return reject(reason, ActionCreate)
}
