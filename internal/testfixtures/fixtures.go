package testfixtures

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/notify"
)

// ReferenceDate is the Monday every fixture clock starts on.
var ReferenceDate = booking.MustParseDate("2024-03-11")

// ReferenceTime returns 10:00 IST on ReferenceDate, safely before the
// same-day cutoff.
func ReferenceTime() time.Time {
	return AtIST(ReferenceDate, 10, 0)
}

// DefaultPassword satisfies the signup password rules.
const DefaultPassword = "correct-horse-battery"

// Email returns an address in the default signup domain.
func Email(local string) string {
	return local + application.DefaultAllowedEmailDomain
}

// Admin returns the principal of an administrator account.
func Admin(userID string) application.Principal {
	return application.Principal{UserID: userID, IsAdmin: true}
}

// Member returns the principal of a regular account.
func Member(userID string) application.Principal {
	return application.Principal{UserID: userID}
}

// Signup registers an account through the auth service and fails the test on
// error. The first account of a fresh store becomes an administrator.
func Signup(tb testing.TB, auth *application.AuthService, local, displayName string) application.AuthenticateResult {
	tb.Helper()
	result, err := auth.Signup(context.Background(), application.SignupParams{
		Email:       Email(local),
		Password:    DefaultPassword,
		DisplayName: displayName,
	})
	if err != nil {
		tb.Fatalf("signup %s: %v", local, err)
	}
	return result
}

// SeedDesks adds ids, or the default floor when ids is empty.
func SeedDesks(tb testing.TB, desks *application.DeskService, ids ...string) {
	tb.Helper()
	if _, err := desks.SeedDefaultDesks(context.Background(), ids); err != nil {
		tb.Fatalf("seed desks: %v", err)
	}
}

// DeskIDs returns n desk identifiers on a small test floor, in floor order.
func DeskIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("1.E.TS.%03d", i))
	}
	return ids
}

// Outbox is a notify.Sender that keeps every message in memory.
type Outbox struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

var _ notify.Sender = (*Outbox)(nil)

// Send records msg, or returns the configured failure.
func (o *Outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// FailWith makes subsequent sends return err.
func (o *Outbox) FailWith(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.messages...)
}

// Last returns the most recent message.
func (o *Outbox) Last() (notify.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return notify.Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}
