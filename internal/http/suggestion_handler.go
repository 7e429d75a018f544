package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/seatserve/internal/application"
)

type suggestionService interface {
	Suggest(ctx context.Context, params application.SuggestParams) (application.Suggestion, error)
	CommitSuggestion(ctx context.Context, params application.CommitSuggestionParams) (application.Booking, error)
}

type SuggestionHandler struct {
	service   suggestionService
	responder responder
	logger    *slog.Logger
}

func NewSuggestionHandler(service suggestionService, logger *slog.Logger) *SuggestionHandler {
	base := defaultLogger(logger)
	return &SuggestionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SuggestionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SuggestionHandler", operation, attrs...)
}

func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req suggestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Suggest", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode suggestion request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Suggest", "principal_id", principal.UserID, "date", req.Date)
	result, err := h.service.Suggest(r.Context(), application.SuggestParams{
		Principal:    principal,
		EmployeeName: strings.TrimSpace(req.EmployeeName),
		Date:         strings.TrimSpace(req.Date),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("desk_id", result.DeskID).InfoContext(r.Context(), "suggestion produced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, suggestionResponse{Suggestion: suggestionDTO{
		UserID:       result.UserID,
		EmployeeName: result.EmployeeName,
		Date:         result.Date.String(),
		DeskNumber:   result.DeskID,
		Reasoning:    result.Reasoning,
	}})
}

func (h *SuggestionHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req commitSuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Commit", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode commit request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Commit", "principal_id", principal.UserID, "desk_id", req.DeskNumber, "date", req.Date)
	created, err := h.service.CommitSuggestion(r.Context(), application.CommitSuggestionParams{
		Principal: principal,
		UserID:    strings.TrimSpace(req.UserID),
		DeskID:    strings.TrimSpace(req.DeskNumber),
		Date:      strings.TrimSpace(req.Date),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "suggestion commit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", created.ID).InfoContext(r.Context(), "suggestion committed")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(created)})
}

type suggestRequest struct {
	EmployeeName string `json:"employee_name"`
	Date         string `json:"date"`
}

type commitSuggestionRequest struct {
	UserID     string `json:"user_id"`
	DeskNumber string `json:"desk_number"`
	Date       string `json:"date"`
}

type suggestionDTO struct {
	UserID       string `json:"user_id"`
	EmployeeName string `json:"employee_name"`
	Date         string `json:"date"`
	DeskNumber   string `json:"desk_number"`
	Reasoning    string `json:"reasoning"`
}

type suggestionResponse struct {
	Suggestion suggestionDTO `json:"suggestion"`
}
