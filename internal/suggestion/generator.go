package suggestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/seatserve/internal/booking"
)

// DefaultInstructions tell the generator how to weigh the facts.
const DefaultInstructions = `You are an assistant that helps employees find a desk in the office.
1. Use getAvailableDesksForDate to see which desks are free on the requested date.
2. Use getEmployeeTeam to find the employee's teammates.
3. Use getPastSeatingForEmployee for the employee and for teammates to learn where they usually sit.
4. Suggest one free desk near the teammates or near the employee's preferred location.
   The desk must be free on the requested date; availability overrides every other preference.
5. Explain the choice in one or two sentences.
Answer with deskNumber and reasoning only.`

// Tool names exposed to the generator.
const (
	ToolEmployeeTeam  = "getEmployeeTeam"
	ToolPastSeating   = "getPastSeatingForEmployee"
	ToolAvailableDesk = "getAvailableDesksForDate"
)

// Generator turns a request into a recommendation.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Request is everything a generator needs for one recommendation.
type Request struct {
	Instructions string
	Facts        Facts
	Tools        []Tool
	// AllowedDesks constrains DeskNumber when the backend supports fixed schemas.
	AllowedDesks []string
}

// Tool is a lookup the generator may call with a single string argument.
type Tool struct {
	Name                 string
	Description          string
	Parameter            string
	ParameterDescription string
	Invoke               func(ctx context.Context, argument string) ([]string, error)
}

// Tool returns the named tool.
func (r Request) Tool(name string) (Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

func newTools(employees []Employee, snap booking.Snapshot) []Tool {
	return []Tool{
		{
			Name:                 ToolEmployeeTeam,
			Description:          "Returns the display names of the employee's active teammates.",
			Parameter:            "employeeName",
			ParameterDescription: "Display name of the employee.",
			Invoke: func(_ context.Context, name string) ([]string, error) {
				return Teammates(employees, name), nil
			},
		},
		{
			Name:                 ToolPastSeating,
			Description:          "Returns the desks the employee has booked in the past.",
			Parameter:            "employeeName",
			ParameterDescription: "Display name of the employee.",
			Invoke: func(_ context.Context, name string) ([]string, error) {
				return PastDesks(snap.Bookings, name), nil
			},
		},
		{
			Name:                 ToolAvailableDesk,
			Description:          "Returns the desks that are free on a date.",
			Parameter:            "date",
			ParameterDescription: "Date in YYYY-MM-DD format.",
			Invoke: func(_ context.Context, raw string) ([]string, error) {
				d, err := booking.ParseDate(strings.TrimSpace(raw))
				if err != nil {
					return nil, fmt.Errorf("suggestion: %w", err)
				}
				return booking.AvailableDesks(d, snap.Desks, snap.Bookings), nil
			},
		},
	}
}
