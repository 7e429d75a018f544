package testfixtures

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestIDGeneratorCountsEachKind(t *testing.T) {
	gen := NewIDGenerator()

	got := []string{
		gen.Next(KindBooking),
		gen.Next(KindAccount),
		gen.Next(KindBooking),
		gen.Next(KindHoliday),
	}
	want := []string{"booking-1", "account-1", "booking-2", "holiday-1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("identifier %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if n := gen.Issued(KindBooking); n != 2 {
		t.Fatalf("expected 2 booking ids issued, got %d", n)
	}
}

func TestIDGeneratorUUIDMode(t *testing.T) {
	first := NewUUIDGenerator().Next(KindBooking)
	second := NewUUIDGenerator().Next(KindBooking)
	if first != second {
		t.Fatalf("expected identical UUIDs, got %q and %q", first, second)
	}
	if first != UUIDFor("booking-1") {
		t.Fatalf("expected UUIDFor to predict %q", first)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected canonical UUID, got %q: %v", first, err)
	}
}

func TestIDGeneratorFuncIsSafeForConcurrentUse(t *testing.T) {
	gen := NewIDGenerator()
	next := gen.Func(KindAccount)

	var wg sync.WaitGroup
	seen := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for id := range seen {
		unique[id] = true
	}
	if len(unique) != 50 || gen.Issued(KindAccount) != 50 {
		t.Fatalf("expected 50 distinct ids, got %d (issued %d)", len(unique), gen.Issued(KindAccount))
	}

	var nilGen *IDGenerator
	if id := nilGen.Func(KindAccount)(); id != "" {
		t.Fatalf("nil generator must yield empty ids, got %q", id)
	}
}
