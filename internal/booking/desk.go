package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// DeskLocation is the parsed form of a desk identifier.
type DeskLocation struct {
	Building string
	Wing     string
	Room     string
	Number   string
}

// ParseDeskID splits an identifier of the form <building>.<wing>.<room-code>.<number>.
func ParseDeskID(id string) (DeskLocation, error) {
	parts := strings.Split(strings.TrimSpace(id), ".")
	if len(parts) != 4 {
		return DeskLocation{}, fmt.Errorf("booking: desk id %q must have four dot-separated parts", id)
	}
	for _, part := range parts {
		if part == "" {
			return DeskLocation{}, fmt.Errorf("booking: desk id %q has an empty part", id)
		}
	}
	return DeskLocation{Building: parts[0], Wing: parts[1], Room: parts[2], Number: parts[3]}, nil
}

// ID joins the location back into a desk identifier.
func (l DeskLocation) ID() string {
	return strings.Join([]string{l.Building, l.Wing, l.Room, l.Number}, ".")
}

// RoomKey identifies the room that contains the desk.
func (l DeskLocation) RoomKey() string {
	return strings.Join([]string{l.Building, l.Wing, l.Room}, ".")
}

// Ordinal returns the numeric part of the desk number, or -1 when it is not numeric.
func (l DeskLocation) Ordinal() int {
	n, err := strconv.Atoi(l.Number)
	if err != nil {
		return -1
	}
	return n
}
