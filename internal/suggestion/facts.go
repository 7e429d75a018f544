package suggestion

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/example/seatserve/internal/booking"
)

// Facts are the inputs gathered before generation.
type Facts struct {
	EmployeeName string       `json:"employeeName"`
	Date         booking.Date `json:"date"`
	Teammates    []string     `json:"teammates"`
	PastDesks    []string     `json:"pastDesks"`
	FreeDesks    []string     `json:"freeDesks"`
}

// Prompt renders the facts as the user turn of a generation request.
func (f Facts) Prompt() string {
	payload, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", f))
	}
	return fmt.Sprintf("Suggest a desk for %s on %s.\n\nKnown facts:\n%s", f.EmployeeName, f.Date, payload)
}

// Teammates returns the display names of other enabled employees that share the
// named employee's team. It returns an empty list when the employee is unknown or
// has no team.
func Teammates(employees []Employee, displayName string) []string {
	name := strings.TrimSpace(displayName)
	var team string
	found := false
	for _, e := range employees {
		if strings.TrimSpace(e.DisplayName) == name {
			team = strings.TrimSpace(e.Team)
			found = true
			break
		}
	}
	if !found || team == "" {
		return []string{}
	}

	mates := []string{}
	for _, e := range employees {
		if e.Disabled || strings.TrimSpace(e.DisplayName) == name {
			continue
		}
		if strings.TrimSpace(e.Team) == team {
			mates = append(mates, e.DisplayName)
		}
	}
	sort.Strings(mates)
	return mates
}

// PastDesks returns the distinct desks ever booked under displayName, sorted.
func PastDesks(bookings []booking.Booking, displayName string) []string {
	name := strings.TrimSpace(displayName)
	seen := make(map[string]struct{})
	desks := []string{}
	for _, b := range bookings {
		if strings.TrimSpace(b.EmployeeName) != name {
			continue
		}
		if _, ok := seen[b.DeskID]; ok {
			continue
		}
		seen[b.DeskID] = struct{}{}
		desks = append(desks, b.DeskID)
	}
	sort.Strings(desks)
	return desks
}
