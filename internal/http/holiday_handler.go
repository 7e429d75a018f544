package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/seatserve/internal/application"
)

type holidayService interface {
	CreateHoliday(ctx context.Context, params application.CreateHolidayParams) (application.Holiday, error)
	DeleteHoliday(ctx context.Context, principal application.Principal, holidayID string) error
	ListHolidays(ctx context.Context) ([]application.Holiday, error)
}

type HolidayHandler struct {
	service   holidayService
	responder responder
	logger    *slog.Logger
}

func NewHolidayHandler(service holidayService, logger *slog.Logger) *HolidayHandler {
	base := defaultLogger(logger)
	return &HolidayHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *HolidayHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HolidayHandler", operation, attrs...)
}

func (h *HolidayHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	holidays, err := h.service.ListHolidays(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "holiday list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]holidayDTO, 0, len(holidays))
	for _, holiday := range holidays {
		out = append(out, toHolidayDTO(holiday))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listHolidaysResponse{Holidays: out})
}

func (h *HolidayHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req holidayRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode holiday request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID, "date", req.Date)
	holiday, err := h.service.CreateHoliday(r.Context(), application.CreateHolidayParams{
		Principal: principal,
		Date:      req.Date,
		Name:      req.Name,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "holiday creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("holiday_id", holiday.ID).InfoContext(r.Context(), "holiday created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, holidayResponse{Holiday: toHolidayDTO(holiday)})
}

func (h *HolidayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	holidayID := strings.TrimSpace(chi.URLParam(r, "id"))
	if holidayID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "holiday_id", holidayID)
	if err := h.service.DeleteHoliday(r.Context(), principal, holidayID); err != nil {
		logger.ErrorContext(r.Context(), "holiday delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "holiday deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type holidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

type holidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type holidayResponse struct {
	Holiday holidayDTO `json:"holiday"`
}

type listHolidaysResponse struct {
	Holidays []holidayDTO `json:"holidays"`
}

func toHolidayDTO(holiday application.Holiday) holidayDTO {
	return holidayDTO{ID: holiday.ID, Date: holiday.Date.String(), Name: holiday.Name}
}
