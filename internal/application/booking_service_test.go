package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/seatserve/internal/booking"
)

type bookingHarness struct {
	users     *userStoreStub
	desks     *deskRepositoryStub
	holidays  *holidayRepositoryStub
	bookings  *bookingRepositoryStub
	publisher *publisherStub
	metrics   *metricsStub
	svc       *BookingService
}

func newBookingHarness(t *testing.T, now func() time.Time) *bookingHarness {
	t.Helper()
	h := &bookingHarness{
		users: newUserStoreStub(
			User{ID: "asha", DisplayName: "Asha", Team: "Platform"},
			User{ID: "bilal", DisplayName: "Bilal", Team: "Platform"},
			User{ID: "admin", DisplayName: "Admin", IsAdmin: true},
			User{ID: "gone", DisplayName: "Gone", Disabled: true},
		),
		desks:     newDeskRepositoryStub("6.W.WS.019", "6.W.WS.020", "6.W.WS.021"),
		holidays:  newHolidayRepositoryStub(),
		bookings:  newBookingRepositoryStub(),
		publisher: &publisherStub{},
		metrics:   &metricsStub{},
	}
	h.svc = NewBookingService(h.bookings, h.desks, h.holidays, h.users, sequenceIDs("booking"), now,
		WithSnapshotPublisher(h.publisher),
		WithMetrics(h.metrics),
	)
	return h
}

func self(id string) Principal { return Principal{UserID: id} }

func TestBookingService_CreateBooking(t *testing.T) {
	t.Parallel()

	t.Run("books a desk for the principal", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))

		created, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
			Principal: self("asha"),
			DeskID:    " 6.W.WS.019 ",
			Date:      "2024-03-12",
		})
		if err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if created.ID != "booking-1" || created.UserName != "Asha" || created.DeskID != "6.W.WS.019" {
			t.Fatalf("unexpected booking %#v", created)
		}
		if created.Date != booking.MustParseDate("2024-03-12") {
			t.Fatalf("unexpected date %v", created.Date)
		}
		if h.publisher.count() != 1 {
			t.Fatalf("expected one published snapshot, got %d", h.publisher.count())
		}
		if last := h.publisher.snapshots[0]; len(last.Bookings) != 1 {
			t.Fatalf("published snapshot should include the new booking: %#v", last)
		}
		if h.metrics.created != 1 {
			t.Fatalf("expected created metric, got %d", h.metrics.created)
		}
	})

	rejections := []struct {
		name   string
		now    time.Time
		date   string
		reason booking.Reason
	}{
		{name: "weekend", now: mondayMorning, date: "2024-03-16", reason: booking.ReasonWeekend},
		{name: "past date", now: mondayMorning, date: "2024-03-08", reason: booking.ReasonPastDate},
		{name: "beyond horizon", now: mondayMorning, date: "2024-03-14", reason: booking.ReasonOutOfHorizon},
		{name: "same day after cutoff", now: mondayAfternoon, date: "2024-03-11", reason: booking.ReasonCutoff},
	}
	for _, tc := range rejections {
		tc := tc
		t.Run("rejects "+tc.name, func(t *testing.T) {
			t.Parallel()
			h := newBookingHarness(t, fixedNow(tc.now))

			_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{
				Principal: self("asha"),
				DeskID:    "6.W.WS.019",
				Date:      tc.date,
			})
			reason, ok := booking.ReasonOf(err)
			if !ok || reason != tc.reason {
				t.Fatalf("expected %s rejection, got %v", tc.reason, err)
			}
			if len(h.metrics.rejected) != 1 || h.metrics.rejected[0] != string(tc.reason) {
				t.Fatalf("expected rejection metric, got %#v", h.metrics.rejected)
			}
			if h.publisher.count() != 0 {
				t.Fatalf("rejected bookings must not publish")
			}
		})
	}

	t.Run("rejects holidays", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		h.holidays.holidays["h1"] = Holiday{ID: "h1", Date: booking.MustParseDate("2024-03-12"), Name: "Holi"}

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"})
		if reason, _ := booking.ReasonOf(err); reason != booking.ReasonHoliday {
			t.Fatalf("expected holiday rejection, got %v", err)
		}
	})

	t.Run("rejects a second booking for the same employee", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		ctx := context.Background()

		if _, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"}); err != nil {
			t.Fatalf("first booking failed: %v", err)
		}
		_, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.020", Date: "2024-03-12"})
		if reason, _ := booking.ReasonOf(err); reason != booking.ReasonDoubleBookingEmployee {
			t.Fatalf("expected employee double booking, got %v", err)
		}
	})

	t.Run("rejects a taken desk", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		ctx := context.Background()

		if _, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"}); err != nil {
			t.Fatalf("first booking failed: %v", err)
		}
		_, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("bilal"), DeskID: "6.W.WS.019", Date: "2024-03-12"})
		var rej *booking.Rejection
		if !errors.As(err, &rej) || rej.Reason != booking.ReasonDoubleBookingDesk {
			t.Fatalf("expected desk double booking, got %v", err)
		}
		if rej.Message() != "This desk is already booked on this date." {
			t.Fatalf("unexpected message %q", rej.Message())
		}
	})

	t.Run("only administrators book for others", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		ctx := context.Background()

		_, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("asha"), UserID: "bilal", DeskID: "6.W.WS.019", Date: "2024-03-12"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		created, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: Principal{UserID: "admin", IsAdmin: true}, UserID: "bilal", DeskID: "6.W.WS.019", Date: "2024-03-12"})
		if err != nil {
			t.Fatalf("admin booking failed: %v", err)
		}
		if created.UserID != "bilal" || created.UserName != "Bilal" {
			t.Fatalf("expected booking on behalf of bilal, got %#v", created)
		}
	})

	t.Run("rejects disabled users and unknown desks", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		ctx := context.Background()

		_, err := h.svc.CreateBooking(ctx, CreateBookingParams{Principal: Principal{UserID: "admin", IsAdmin: true}, UserID: "gone", DeskID: "6.W.WS.019", Date: "2024-03-12"})
		if !errors.Is(err, ErrAccountDisabled) {
			t.Fatalf("expected ErrAccountDisabled, got %v", err)
		}

		_, err = h.svc.CreateBooking(ctx, CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.999", Date: "2024-03-12"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["desk_id"] == "" {
			t.Fatalf("expected desk validation error, got %v", err)
		}
	})

	t.Run("validates the date format", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))

		_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "12/03/2024"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["date"] == "" {
			t.Fatalf("expected date validation error, got %v", err)
		}
	})
}

func TestBookingService_StorageArbitratesConcurrentWriters(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))

	// Both writers pass the policy check on the same snapshot before either inserts.
	var arrived sync.WaitGroup
	arrived.Add(2)
	h.bookings.beforeCreate = func(Booking) {
		arrived.Done()
		arrived.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"asha", "bilal"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = h.svc.CreateBooking(context.Background(), CreateBookingParams{
				Principal: self(user),
				DeskID:    "6.W.WS.019",
				Date:      "2024-03-12",
			})
		}(i, user)
	}
	wg.Wait()

	var wins, desk int
	for _, err := range errs {
		switch reason, ok := booking.ReasonOf(err); {
		case err == nil:
			wins++
		case ok && reason == booking.ReasonDoubleBookingDesk:
			desk++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 || desk != 1 {
		t.Fatalf("expected one winner and one desk rejection, got wins=%d desk=%d", wins, desk)
	}
	if len(h.bookings.bookings) != 1 {
		t.Fatalf("expected exactly one stored booking, got %d", len(h.bookings.bookings))
	}
}

func TestBookingService_MapsEmployeeUniquenessToRejection(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	// A booking written by another process after this service loaded its snapshot.
	h.bookings.beforeCreate = func(b Booking) {
		h.bookings.mu.Lock()
		h.bookings.bookings["external"] = Booking{ID: "external", DeskID: "6.W.WS.021", UserID: b.UserID, Date: b.Date}
		h.bookings.mu.Unlock()
	}

	_, err := h.svc.CreateBooking(context.Background(), CreateBookingParams{Principal: self("asha"), DeskID: "6.W.WS.019", Date: "2024-03-12"})
	if reason, _ := booking.ReasonOf(err); reason != booking.ReasonDoubleBookingEmployee {
		t.Fatalf("expected employee rejection from storage conflict, got %v", err)
	}
}

func TestBookingService_CancelBooking(t *testing.T) {
	t.Parallel()

	today := booking.MustParseDate("2024-03-11")
	tomorrow := booking.MustParseDate("2024-03-12")

	t.Run("owner cancels before cutoff", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.019", UserID: "asha", Date: today}

		if err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: self("asha"), BookingID: "b1"}); err != nil {
			t.Fatalf("CancelBooking failed: %v", err)
		}
		if len(h.bookings.bookings) != 0 || h.metrics.cancelled != 1 || h.publisher.count() != 1 {
			t.Fatalf("expected booking removed, counted and published")
		}
	})

	t.Run("same day cancellation after cutoff is refused", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayAfternoon))
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.019", UserID: "asha", Date: today}

		err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: self("asha"), BookingID: "b1"})
		var rej *booking.Rejection
		if !errors.As(err, &rej) || rej.Reason != booking.ReasonCutoff || rej.Action != booking.ActionCancel {
			t.Fatalf("expected cancel cutoff rejection, got %v", err)
		}
		if rej.Message() != "Same-day cancellations are only allowed until 2 PM IST." {
			t.Fatalf("unexpected message %q", rej.Message())
		}
	})

	t.Run("future bookings stay cancellable after cutoff", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayAfternoon))
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.019", UserID: "asha", Date: tomorrow}

		if err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: self("asha"), BookingID: "b1"}); err != nil {
			t.Fatalf("CancelBooking failed: %v", err)
		}
	})

	t.Run("other employees cannot cancel", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))
		h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.019", UserID: "asha", Date: tomorrow}

		err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: self("bilal"), BookingID: "b1"})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: Principal{UserID: "admin", IsAdmin: true}, BookingID: "b1"}); err != nil {
			t.Fatalf("admin cancellation failed: %v", err)
		}
	})

	t.Run("missing booking", func(t *testing.T) {
		t.Parallel()
		h := newBookingHarness(t, fixedNow(mondayMorning))

		err := h.svc.CancelBooking(context.Background(), CancelBookingParams{Principal: self("asha"), BookingID: "nope"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_ListBookings(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	for _, b := range []Booking{
		{ID: "b1", DeskID: "6.W.WS.019", UserID: "asha", Date: booking.MustParseDate("2024-03-08")},
		{ID: "b2", DeskID: "6.W.WS.020", UserID: "bilal", Date: booking.MustParseDate("2024-03-11")},
		{ID: "b3", DeskID: "6.W.WS.019", UserID: "asha", Date: booking.MustParseDate("2024-03-12")},
	} {
		h.bookings.bookings[b.ID] = b
	}
	ctx := context.Background()

	t.Run("employees see their own bookings", func(t *testing.T) {
		list, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: self("asha")})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(list) != 2 || list[0].ID != "b1" || list[1].ID != "b3" {
			t.Fatalf("unexpected list %#v", list)
		}
		if _, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: self("asha"), UserID: "bilal"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("a date lists the whole floor", func(t *testing.T) {
		list, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: self("asha"), Date: "2024-03-11"})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != "b2" {
			t.Fatalf("unexpected list %#v", list)
		}
	})

	t.Run("administrators see everything newest first", func(t *testing.T) {
		list, err := h.svc.ListBookings(ctx, ListBookingsParams{Principal: Principal{UserID: "admin", IsAdmin: true}})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(list) != 3 || list[0].ID != "b3" || list[2].ID != "b1" {
			t.Fatalf("unexpected order %#v", list)
		}
	})
}

func TestBookingService_AvailableDesksAndCalendar(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	h.bookings.bookings["b1"] = Booking{ID: "b1", DeskID: "6.W.WS.020", UserID: "asha", Date: booking.MustParseDate("2024-03-12")}
	ctx := context.Background()

	free, err := h.svc.AvailableDesks(ctx, "2024-03-12")
	if err != nil {
		t.Fatalf("AvailableDesks failed: %v", err)
	}
	if len(free) != 2 || free[0] != "6.W.WS.019" || free[1] != "6.W.WS.021" {
		t.Fatalf("unexpected free desks %v", free)
	}

	days, err := h.svc.Calendar(ctx, self("asha"), "2024-03-11", "2024-03-17")
	if err != nil {
		t.Fatalf("Calendar failed: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	bookable := 0
	for _, d := range days {
		if d.Bookable {
			bookable++
		}
	}
	if bookable != 3 {
		t.Fatalf("expected today plus two working days bookable, got %d", bookable)
	}

	if _, err := h.svc.Calendar(ctx, self("asha"), "2024-03-17", "2024-03-11"); err == nil {
		t.Fatalf("expected reversed range to fail")
	}
}

func TestBookingService_CalendarRejectsOversizedRange(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	ctx := context.Background()

	days, err := h.svc.Calendar(ctx, self("asha"), "2024-03-01", "2024-05-01")
	if err != nil {
		t.Fatalf("expected a %d-day range to be accepted, got %v", booking.MaxCalendarDays, err)
	}
	if len(days) != booking.MaxCalendarDays {
		t.Fatalf("expected %d days, got %d", booking.MaxCalendarDays, len(days))
	}

	_, err = h.svc.Calendar(ctx, self("asha"), "2024-03-01", "2024-05-02")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := vErr.FieldErrors["to"]; msg != "range must not exceed 62 days" {
		t.Fatalf("unexpected field error %q", msg)
	}
}

func TestBookingService_SnapshotCacheInvalidatedByWrites(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	ctx := context.Background()

	first, err := h.svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(first.Desks) != 3 {
		t.Fatalf("unexpected desks %#v", first.Desks)
	}

	// Direct repository writes are invisible until a change is signalled.
	h.desks.desks["6.W.WS.022"] = Desk{ID: "6.W.WS.022"}
	cached, _ := h.svc.Snapshot(ctx)
	if len(cached.Desks) != 3 {
		t.Fatalf("expected cached snapshot, got %d desks", len(cached.Desks))
	}

	h.svc.NotifyChanged(ctx)
	fresh, _ := h.svc.Snapshot(ctx)
	if len(fresh.Desks) != 4 {
		t.Fatalf("expected reloaded snapshot, got %d desks", len(fresh.Desks))
	}
}

func TestBookingService_NotifyChangedPublishesLatestState(t *testing.T) {
	t.Parallel()

	h := newBookingHarness(t, fixedNow(mondayMorning))
	ctx := context.Background()
	day := booking.MustParseDate("2024-03-12")
	put := func(id, desk, user string) {
		h.bookings.mu.Lock()
		h.bookings.bookings[id] = Booking{ID: id, DeskID: desk, UserID: user, UserName: user, Date: day}
		h.bookings.mu.Unlock()
	}
	put("b1", "6.W.WS.019", "asha")

	// The first reload pauses after reading bookings, before holidays.
	paused := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.holidays.beforeList = func() {
		once.Do(func() {
			close(paused)
			<-release
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.svc.NotifyChanged(ctx)
	}()
	<-paused

	put("b2", "6.W.WS.020", "bilal")
	go func() {
		defer wg.Done()
		h.svc.NotifyChanged(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	last, ok := h.publisher.last()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if len(last.Bookings) != 2 {
		t.Fatalf("last published snapshot holds %d bookings, store holds 2", len(last.Bookings))
	}
}
