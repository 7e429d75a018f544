package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/seatserve/internal/application"
)

type deskService interface {
	CreateDesk(ctx context.Context, params application.CreateDeskParams) (application.Desk, error)
	DeleteDesk(ctx context.Context, principal application.Principal, deskID string) error
	ListDesks(ctx context.Context) ([]application.Desk, error)
}

type DeskHandler struct {
	service   deskService
	responder responder
	logger    *slog.Logger
}

func NewDeskHandler(service deskService, logger *slog.Logger) *DeskHandler {
	base := defaultLogger(logger)
	return &DeskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DeskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "DeskHandler", operation, attrs...)
}

func (h *DeskHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	desks, err := h.service.ListDesks(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "desk list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]deskDTO, 0, len(desks))
	for _, desk := range desks {
		out = append(out, toDeskDTO(desk))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listDesksResponse{Desks: out})
}

func (h *DeskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req deskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode desk request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	desk, err := h.service.CreateDesk(r.Context(), application.CreateDeskParams{
		Principal: principal,
		DeskID:    req.ID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "desk creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("desk_id", desk.ID).InfoContext(r.Context(), "desk created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, deskResponse{Desk: toDeskDTO(desk)})
}

func (h *DeskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	deskID := strings.TrimSpace(chi.URLParam(r, "id"))
	if deskID == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing desk id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "desk_id", deskID)
	if err := h.service.DeleteDesk(r.Context(), principal, deskID); err != nil {
		logger.ErrorContext(r.Context(), "desk delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "desk deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type deskRequest struct {
	ID string `json:"id"`
}

type deskDTO struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at,omitempty"`
}

type deskResponse struct {
	Desk deskDTO `json:"desk"`
}

type listDesksResponse struct {
	Desks []deskDTO `json:"desks"`
}

func toDeskDTO(desk application.Desk) deskDTO {
	return deskDTO{ID: desk.ID, CreatedAt: formatTimestamp(desk.CreatedAt)}
}
