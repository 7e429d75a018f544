package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/example/seatserve/internal/booking"
)

// DefaultSubject is the NATS subject change notifications are published on.
const DefaultSubject = "seatserve.snapshot"

// Change summarizes a snapshot for other processes.
type Change struct {
	TakenAt  time.Time `json:"taken_at"`
	Desks    int       `json:"desks"`
	Bookings int       `json:"bookings"`
	Holidays int       `json:"holidays"`
}

// ChangeOf summarizes snap.
func ChangeOf(snap booking.Snapshot) Change {
	return Change{
		TakenAt:  snap.TakenAt.UTC(),
		Desks:    len(snap.Desks),
		Bookings: len(snap.Bookings),
		Holidays: len(snap.Holidays),
	}
}

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ConnectNATS dials url, retrying with exponential backoff until ctx is done or
// maxElapsed passes.
func ConnectNATS(ctx context.Context, url string, maxElapsed time.Duration, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var conn *nats.Conn
	attempt := 0
	op := func() error {
		attempt++
		c, err := nats.Connect(url,
			nats.Name("seatserve"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			logger.WarnContext(ctx, "nats connect failed", "url", url, "attempt", attempt, "error", err)
			return err
		}
		conn = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("events: connect nats %s: %w", url, err)
	}
	logger.InfoContext(ctx, "nats connected", "url", url, "attempts", attempt)
	return conn, nil
}

// Bridge republishes feed snapshots as Change messages on a subject.
type Bridge struct {
	publisher Publisher
	subject   string
	logger    *slog.Logger
	sub       *Subscription
}

// NewBridge returns a bridge that is not yet attached to a feed.
func NewBridge(publisher Publisher, subject string, logger *slog.Logger) *Bridge {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{publisher: publisher, subject: subject, logger: logger}
}

// Attach subscribes the bridge to feed.
func (b *Bridge) Attach(feed *Feed) {
	b.sub = feed.Subscribe(b.forward)
}

// Detach stops forwarding.
func (b *Bridge) Detach() {
	b.sub.Cancel()
}

func (b *Bridge) forward(snap booking.Snapshot) {
	payload, err := json.Marshal(ChangeOf(snap))
	if err != nil {
		b.logger.Error("encode change", "error", err)
		return
	}
	if err := b.publisher.Publish(b.subject, payload); err != nil {
		b.logger.Warn("publish change", "subject", b.subject, "error", err)
	}
}
