package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/suggestion"
)

type suggesterFunc func(ctx context.Context, employeeName string, date booking.Date) (suggestion.Result, error)

func (f suggesterFunc) Suggest(ctx context.Context, employeeName string, date booking.Date) (suggestion.Result, error) {
	return f(ctx, employeeName, date)
}

func newSuggestionHarness(t *testing.T, suggester Suggester) (*bookingHarness, *SuggestionService) {
	t.Helper()
	h := newBookingHarness(t, fixedNow(mondayMorning))
	svc := NewSuggestionService(suggester, h.users, h.svc, time.Second, h.metrics, fixedNow(mondayMorning))
	return h, svc
}

func TestSuggestionService_Suggest(t *testing.T) {
	t.Parallel()

	t.Run("suggests for the principal", func(t *testing.T) {
		t.Parallel()
		var gotName string
		_, svc := newSuggestionHarness(t, suggesterFunc(func(ctx context.Context, name string, date booking.Date) (suggestion.Result, error) {
			gotName = name
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("expected a generation deadline")
			}
			return suggestion.Result{DeskNumber: "6.W.WS.020", Reasoning: "Near your team."}, nil
		}))

		got, err := svc.Suggest(context.Background(), SuggestParams{Principal: self("asha"), Date: "2024-03-12"})
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if gotName != "Asha" || got.DeskID != "6.W.WS.020" || got.UserID != "asha" || got.Reasoning != "Near your team." {
			t.Fatalf("unexpected suggestion %#v (name %q)", got, gotName)
		}
	})

	t.Run("checks the date before generating", func(t *testing.T) {
		t.Parallel()
		called := false
		h, svc := newSuggestionHarness(t, suggesterFunc(func(context.Context, string, booking.Date) (suggestion.Result, error) {
			called = true
			return suggestion.Result{}, nil
		}))

		_, err := svc.Suggest(context.Background(), SuggestParams{Principal: self("asha"), Date: "2024-03-16"})
		if reason, _ := booking.ReasonOf(err); reason != booking.ReasonWeekend {
			t.Fatalf("expected weekend rejection, got %v", err)
		}
		if called {
			t.Fatalf("generator must not run for unbookable dates")
		}
		if len(h.metrics.suggestions) != 1 || h.metrics.suggestions[0] != "rejected" {
			t.Fatalf("unexpected metrics %v", h.metrics.suggestions)
		}
	})

	t.Run("surfaces unavailability", func(t *testing.T) {
		t.Parallel()
		h, svc := newSuggestionHarness(t, suggesterFunc(func(context.Context, string, booking.Date) (suggestion.Result, error) {
			return suggestion.Result{}, suggestion.ErrSuggestionUnavailable
		}))

		_, err := svc.Suggest(context.Background(), SuggestParams{Principal: self("asha"), Date: "2024-03-12"})
		if !errors.Is(err, ErrSuggestionUnavailable) {
			t.Fatalf("expected ErrSuggestionUnavailable, got %v", err)
		}
		if ErrorKind(err) != "suggestion_unavailable" || h.metrics.suggestions[0] != "unavailable" {
			t.Fatalf("unexpected classification %q / %v", ErrorKind(err), h.metrics.suggestions)
		}
	})

	t.Run("timeouts become unavailability", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		svc := NewSuggestionService(suggesterFunc(func(ctx context.Context, _ string, _ booking.Date) (suggestion.Result, error) {
			<-ctx.Done()
			return suggestion.Result{}, ctx.Err()
		}), h.users, h.svc, 10*time.Millisecond, nil, nil)

		_, err := svc.Suggest(context.Background(), SuggestParams{Principal: self("asha"), Date: "2024-03-12"})
		if !errors.Is(err, ErrSuggestionUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected unavailable wrapping deadline, got %v", err)
		}
	})

	t.Run("administrators suggest for others by name", func(t *testing.T) {
		t.Parallel()
		var gotName string
		_, svc := newSuggestionHarness(t, suggesterFunc(func(_ context.Context, name string, _ booking.Date) (suggestion.Result, error) {
			gotName = name
			return suggestion.Result{DeskNumber: "6.W.WS.019", Reasoning: "Free."}, nil
		}))
		ctx := context.Background()

		got, err := svc.Suggest(ctx, SuggestParams{Principal: admin, EmployeeName: "bilal", Date: "2024-03-12"})
		if err != nil {
			t.Fatalf("Suggest failed: %v", err)
		}
		if gotName != "Bilal" || got.UserID != "bilal" {
			t.Fatalf("expected suggestion for Bilal, got %#v", got)
		}

		if _, err := svc.Suggest(ctx, SuggestParams{Principal: self("asha"), EmployeeName: "Bilal", Date: "2024-03-12"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		var vErr *ValidationError
		if _, err := svc.Suggest(ctx, SuggestParams{Principal: admin, EmployeeName: "Nobody", Date: "2024-03-12"}); !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestSuggestionService_CommitSuggestion(t *testing.T) {
	t.Parallel()

	t.Run("books the suggested desk", func(t *testing.T) {
		t.Parallel()
		h, svc := newSuggestionHarness(t, nil)

		created, err := svc.CommitSuggestion(context.Background(), CommitSuggestionParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"})
		if err != nil {
			t.Fatalf("CommitSuggestion failed: %v", err)
		}
		if created.UserID != "asha" || len(h.bookings.bookings) != 1 {
			t.Fatalf("unexpected booking %#v", created)
		}
	})

	t.Run("taken desks report a stale suggestion", func(t *testing.T) {
		t.Parallel()
		h, svc := newSuggestionHarness(t, nil)
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.019", UserID: "bilal", Date: booking.MustParseDate("2024-03-12")}

		_, err := svc.CommitSuggestion(context.Background(), CommitSuggestionParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"})
		var stale *StaleSuggestionError
		if !errors.As(err, &stale) || stale.Rejection.Reason != booking.ReasonDoubleBookingDesk {
			t.Fatalf("expected stale suggestion for taken desk, got %v", err)
		}
		if ErrorKind(err) != "stale_suggestion" {
			t.Fatalf("unexpected kind %q", ErrorKind(err))
		}
	})

	t.Run("on-behalf commits check the target's existing booking first", func(t *testing.T) {
		t.Parallel()
		h, svc := newSuggestionHarness(t, nil)
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.021", UserID: "bilal", Date: booking.MustParseDate("2024-03-12")}

		_, err := svc.CommitSuggestion(context.Background(), CommitSuggestionParams{Principal: admin, UserID: "bilal", DeskID: "6.W.WS.019", Date: "2024-03-12"})
		var stale *StaleSuggestionError
		if !errors.As(err, &stale) || stale.Rejection.Reason != booking.ReasonDoubleBookingEmployee {
			t.Fatalf("expected stale employee rejection, got %v", err)
		}

		if _, err := svc.CommitSuggestion(context.Background(), CommitSuggestionParams{Principal: self("asha"), UserID: "bilal", DeskID: "6.W.WS.019", Date: "2024-03-12"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSuggestionSource(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	source := NewSuggestionSource(h.users, h.svc)

	employees, err := source.Employees(context.Background())
	if err != nil {
		t.Fatalf("Employees failed: %v", err)
	}
	if len(employees) != 4 || employees[0].DisplayName != "Asha" || employees[0].Team != "Platform" || !employees[3].Disabled {
		t.Fatalf("unexpected employees %#v", employees)
	}
	snap, err := source.Snapshot(context.Background())
	if err != nil || len(snap.Desks) != 3 {
		t.Fatalf("unexpected snapshot %#v, %v", snap, err)
	}
}
