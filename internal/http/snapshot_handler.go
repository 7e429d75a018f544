package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/events"
)

const defaultKeepAlive = 15 * time.Second

type snapshotSource interface {
	Snapshot(ctx context.Context) (booking.Snapshot, error)
}

type snapshotFeed interface {
	Subscribe(fn func(booking.Snapshot)) *events.Subscription
}

// SnapshotHandler serves the shared booking state, once or as a live stream.
type SnapshotHandler struct {
	source    snapshotSource
	feed      snapshotFeed
	keepAlive time.Duration
	responder responder
	logger    *slog.Logger
}

func NewSnapshotHandler(source snapshotSource, feed snapshotFeed, logger *slog.Logger) *SnapshotHandler {
	base := defaultLogger(logger)
	return &SnapshotHandler{
		source:    source,
		feed:      feed,
		keepAlive: defaultKeepAlive,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *SnapshotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SnapshotHandler", operation, attrs...)
}

func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	snap, err := h.source.Snapshot(r.Context())
	if err != nil {
		h.log(r.Context(), "Get").ErrorContext(r.Context(), "snapshot load failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSnapshotDTO(snap))
}

// Stream writes the current snapshot and then every published change as
// Server-Sent Events until the client disconnects.
func (h *SnapshotHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil || h.feed == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("streaming is not supported"))
		return
	}

	ctx := r.Context()
	logger := h.log(ctx, "Stream")

	initial, err := h.source.Snapshot(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "snapshot load failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	updates := make(chan booking.Snapshot, 1)
	sub := h.feed.Subscribe(func(snap booking.Snapshot) {
		// Keep only the newest pending snapshot.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSnapshotEvent(w, initial); err != nil {
		logger.WarnContext(ctx, "stream write failed", "error", err)
		return
	}
	flusher.Flush()
	logger.InfoContext(ctx, "snapshot stream opened")

	keepAlive := h.keepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "snapshot stream closed")
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-updates:
			if err := writeSnapshotEvent(w, snap); err != nil {
				logger.WarnContext(ctx, "stream write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap booking.Snapshot) error {
	payload, err := json.Marshal(toSnapshotDTO(snap))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
	return err
}

type snapshotDTO struct {
	TakenAt  string               `json:"taken_at"`
	Desks    []string             `json:"desks"`
	Bookings []snapshotBookingDTO `json:"bookings"`
	Holidays []holidayDTO         `json:"holidays"`
}

type snapshotBookingDTO struct {
	ID           string `json:"id"`
	DeskID       string `json:"desk_id"`
	Date         string `json:"date"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
}

func toSnapshotDTO(snap booking.Snapshot) snapshotDTO {
	out := snapshotDTO{
		TakenAt:  formatTimestamp(snap.TakenAt),
		Desks:    make([]string, 0, len(snap.Desks)),
		Bookings: make([]snapshotBookingDTO, 0, len(snap.Bookings)),
		Holidays: make([]holidayDTO, 0, len(snap.Holidays)),
	}
	for _, d := range snap.Desks {
		out.Desks = append(out.Desks, d.ID)
	}
	for _, b := range snap.Bookings {
		out.Bookings = append(out.Bookings, snapshotBookingDTO{
			ID:           b.ID,
			DeskID:       b.DeskID,
			Date:         b.Date.String(),
			EmployeeID:   b.EmployeeID,
			EmployeeName: b.EmployeeName,
		})
	}
	for _, hol := range snap.Holidays {
		out.Holidays = append(out.Holidays, holidayDTO{ID: hol.ID, Date: hol.Date.String(), Name: hol.Name})
	}
	return out
}
