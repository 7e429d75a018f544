package suggestion

import (
	"context"
	"fmt"

	"github.com/example/seatserve/internal/booking"
)

// HeuristicGenerator answers without a model. It prefers a free desk the
// employee used before, then the free desk closest to where teammates sat, then
// the first free desk. It drives the same tools a model would.
type HeuristicGenerator struct{}

// NewHeuristicGenerator returns the offline generator.
func NewHeuristicGenerator() HeuristicGenerator {
	return HeuristicGenerator{}
}

// Generate implements Generator.
func (HeuristicGenerator) Generate(ctx context.Context, req Request) (Result, error) {
	free, err := callTool(ctx, req, ToolAvailableDesk, req.Facts.Date.String())
	if err != nil {
		return Result{}, err
	}
	if len(free) == 0 {
		return Result{}, fmt.Errorf("no free desks on %s", req.Facts.Date)
	}
	freeSet := make(map[string]struct{}, len(free))
	for _, id := range free {
		freeSet[id] = struct{}{}
	}

	own, err := callTool(ctx, req, ToolPastSeating, req.Facts.EmployeeName)
	if err != nil {
		return Result{}, err
	}
	for _, id := range own {
		if _, ok := freeSet[id]; ok {
			return Result{
				DeskNumber: id,
				Reasoning:  fmt.Sprintf("%s has sat at %s before and it is free on %s.", req.Facts.EmployeeName, id, req.Facts.Date),
			}, nil
		}
	}

	mates, err := callTool(ctx, req, ToolEmployeeTeam, req.Facts.EmployeeName)
	if err != nil {
		return Result{}, err
	}
	var anchors []booking.DeskLocation
	for _, mate := range mates {
		desks, err := callTool(ctx, req, ToolPastSeating, mate)
		if err != nil {
			return Result{}, err
		}
		for _, id := range desks {
			if loc, err := booking.ParseDeskID(id); err == nil {
				anchors = append(anchors, loc)
			}
		}
	}
	if id, ok := nearest(free, anchors); ok {
		return Result{
			DeskNumber: id,
			Reasoning:  fmt.Sprintf("%s is free on %s and close to where teammates usually sit.", id, req.Facts.Date),
		}, nil
	}

	return Result{
		DeskNumber: free[0],
		Reasoning:  fmt.Sprintf("%s is free on %s; no seating history was found to narrow the choice.", free[0], req.Facts.Date),
	}, nil
}

// nearest picks the free desk that shares a room with an anchor and has the
// smallest ordinal distance to it. Ties go to the lower desk id.
func nearest(free []string, anchors []booking.DeskLocation) (string, bool) {
	best := ""
	bestDistance := -1
	for _, id := range free {
		loc, err := booking.ParseDeskID(id)
		if err != nil {
			continue
		}
		for _, anchor := range anchors {
			if anchor.RoomKey() != loc.RoomKey() {
				continue
			}
			d := loc.Ordinal() - anchor.Ordinal()
			if d < 0 {
				d = -d
			}
			if bestDistance < 0 || d < bestDistance || (d == bestDistance && id < best) {
				best, bestDistance = id, d
			}
		}
	}
	return best, bestDistance >= 0
}

func callTool(ctx context.Context, req Request, name, arg string) ([]string, error) {
	tool, ok := req.Tool(name)
	if !ok {
		return nil, fmt.Errorf("tool %s not provided", name)
	}
	return tool.Invoke(ctx, arg)
}
