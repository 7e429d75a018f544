package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, params application.CancelBookingParams) error
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
	AvailableDesks(ctx context.Context, date string) ([]string, error)
	Calendar(ctx context.Context, principal application.Principal, from, to string) ([]booking.DayStatus, error)
	Snapshot(ctx context.Context) (booking.Snapshot, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	bookings, err := h.service.ListBookings(r.Context(), application.ListBookingsParams{
		Principal: principal,
		Date:      strings.TrimSpace(query.Get("date")),
		UserID:    strings.TrimSpace(query.Get("user_id")),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: out})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req bookingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "desk_id", req.DeskID, "date", req.Date)
	created, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		UserID:    strings.TrimSpace(req.UserID),
		DeskID:    strings.TrimSpace(req.DeskID),
		Date:      strings.TrimSpace(req.Date),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "booking creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", created.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(created)})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := strings.TrimSpace(chi.URLParam(r, "id"))
	if bookingID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "principal_id", principal.UserID, "booking_id", bookingID)
	if err := h.service.CancelBooking(r.Context(), application.CancelBookingParams{Principal: principal, BookingID: bookingID}); err != nil {
		logger.ErrorContext(r.Context(), "booking cancel failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) AvailableDesks(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	desks, err := h.service.AvailableDesks(r.Context(), date)
	if err != nil {
		h.log(r.Context(), "AvailableDesks", "date", date).ErrorContext(r.Context(), "availability lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if desks == nil {
		desks = []string{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availableDesksResponse{Date: date, Desks: desks})
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	days, err := h.service.Calendar(r.Context(), principal, strings.TrimSpace(query.Get("from")), strings.TrimSpace(query.Get("to")))
	if err != nil {
		h.log(r.Context(), "Calendar", "principal_id", principal.UserID).ErrorContext(r.Context(), "calendar failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]dayDTO, 0, len(days))
	for _, day := range days {
		out = append(out, dayDTO{
			Date:       day.Date.String(),
			Bookable:   day.Bookable,
			Selectable: day.Selectable,
			Holiday:    day.Holiday,
			Reason:     string(day.Reason),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{Days: out})
}

type bookingRequest struct {
	UserID string `json:"user_id"`
	DeskID string `json:"desk_id"`
	Date   string `json:"date"`
}

type bookingDTO struct {
	ID        string `json:"id"`
	DeskID    string `json:"desk_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at,omitempty"`
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type availableDesksResponse struct {
	Date  string   `json:"date"`
	Desks []string `json:"desks"`
}

type dayDTO struct {
	Date       string `json:"date"`
	Bookable   bool   `json:"bookable"`
	Selectable bool   `json:"selectable"`
	Holiday    string `json:"holiday,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type calendarResponse struct {
	Days []dayDTO `json:"days"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	return bookingDTO{
		ID:        b.ID,
		DeskID:    b.DeskID,
		UserID:    b.UserID,
		UserName:  b.UserName,
		Date:      b.Date.String(),
		CreatedAt: formatTimestamp(b.CreatedAt),
	}
}
