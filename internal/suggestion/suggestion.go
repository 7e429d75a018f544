// Package suggestion recommends a desk for an employee on a given day.
//
// The Orchestrator gathers three facts (teammates, the employee's past desks and
// the desks still free on the day) and hands them to a Generator together with
// tool callbacks that resolve the same facts on demand. The generator's answer is
// advisory: callers must re-validate it with the booking policy before committing.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/seatserve/internal/booking"
)

// ErrSuggestionUnavailable is returned when the generator fails or answers
// outside the two-field result shape.
var ErrSuggestionUnavailable = errors.New("suggestion: unavailable")

// Employee is the subset of a user record the orchestrator needs.
type Employee struct {
	ID          string
	DisplayName string
	Team        string
	Disabled    bool
}

// Source supplies the raw data the facts are derived from.
type Source interface {
	Employees(ctx context.Context) ([]Employee, error)
	Snapshot(ctx context.Context) (booking.Snapshot, error)
}

// Result is the generator's recommendation.
type Result struct {
	DeskNumber string `json:"deskNumber"`
	Reasoning  string `json:"reasoning"`
}

// Orchestrator produces a single desk recommendation per call. It holds no state
// between calls.
type Orchestrator struct {
	source       Source
	generator    Generator
	instructions string
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInstructions replaces the default system instructions.
func WithInstructions(instructions string) Option {
	return func(o *Orchestrator) {
		if strings.TrimSpace(instructions) != "" {
			o.instructions = instructions
		}
	}
}

// NewOrchestrator wires an orchestrator over the given source and generator.
func NewOrchestrator(source Source, generator Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:       source,
		generator:    generator,
		instructions: DefaultInstructions,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Suggest recommends a desk for employeeName on date. Storage failures are returned
// as-is; generation failures and malformed answers wrap ErrSuggestionUnavailable.
// The date is not checked against the booking horizon here.
func (o *Orchestrator) Suggest(ctx context.Context, employeeName string, date booking.Date) (Result, error) {
	if o == nil || o.source == nil || o.generator == nil {
		return Result{}, fmt.Errorf("%w: orchestrator not configured", ErrSuggestionUnavailable)
	}
	name := strings.TrimSpace(employeeName)
	logger := o.logger.With("employee_name", name, "date", date.String())

	employees, err := o.source.Employees(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("suggestion: load employees: %w", err)
	}
	snap, err := o.source.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("suggestion: load snapshot: %w", err)
	}

	facts := Facts{
		EmployeeName: name,
		Date:         date,
		Teammates:    Teammates(employees, name),
		PastDesks:    PastDesks(snap.Bookings, name),
		FreeDesks:    booking.AvailableDesks(date, snap.Desks, snap.Bookings),
	}
	if len(facts.FreeDesks) == 0 {
		return Result{}, fmt.Errorf("%w: no free desks on %s", ErrSuggestionUnavailable, date)
	}

	req := Request{
		Instructions: o.instructions,
		Facts:        facts,
		Tools:        newTools(employees, snap),
		AllowedDesks: facts.FreeDesks,
	}

	result, err := o.generator.Generate(ctx, req)
	if err != nil {
		logger.WarnContext(ctx, "generation failed", "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrSuggestionUnavailable, err)
	}

	result.DeskNumber = strings.TrimSpace(result.DeskNumber)
	result.Reasoning = strings.TrimSpace(result.Reasoning)
	if result.DeskNumber == "" || result.Reasoning == "" {
		return Result{}, fmt.Errorf("%w: incomplete result", ErrSuggestionUnavailable)
	}
	if !contains(facts.FreeDesks, result.DeskNumber) {
		logger.WarnContext(ctx, "generator suggested a desk outside the free set", "desk_id", result.DeskNumber)
	}
	return result, nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
