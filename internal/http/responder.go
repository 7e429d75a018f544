package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
)

var (
	errBadRequestBody      = errors.New("The request body is not valid JSON.")
	errMissingSessionToken = errors.New("A session token is required.")
	errMissingID           = errors.New("A resource identifier is required.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	if body, ok := payload.(errorResponse); ok && body.RequestID == "" {
		body.RequestID, _ = RequestIDFromContext(ctx)
		payload = body
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	if rej, ok := application.AsRejection(err); ok {
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: rejectionCode(rej.Reason),
			Message:   rej.Message(),
		})
		return
	}

	var conflict *application.ConflictError
	if errors.As(err, &conflict) {
		code := "CONFLICT"
		switch {
		case errors.Is(conflict, application.ErrAlreadyExists):
			code = "ALREADY_EXISTS"
		case errors.Is(conflict, application.ErrDeskInUse):
			code = "DESK_IN_USE"
		}
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: code, Message: conflict.Message})
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		})
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "The email or password is incorrect.",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Your session has ended. Please sign in again.",
		})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_ACCOUNT_DISABLED",
			Message:   "This account has been disabled.",
		})
	case errors.Is(err, application.ErrEmailDomain):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "AUTH_EMAIL_DOMAIN",
			Message:   "Sign up with your company email address.",
			Errors:    map[string]string{"email": "must use the company email domain"},
		})
	case errors.Is(err, application.ErrLastAdmin):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "LAST_ADMIN",
			Message:   "At least one enabled administrator must remain.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   statusMessage(http.StatusNotFound),
		})
	case errors.Is(err, application.ErrSuggestionUnavailable), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "SUGGESTION_UNAVAILABLE",
			Message:   "A seating suggestion is not available right now. Please try again.",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// rejectionCode turns "double-booking-desk" into "BOOKING_DOUBLE_BOOKING_DESK".
func rejectionCode(reason booking.Reason) string {
	return "BOOKING_" + strings.ToUpper(strings.ReplaceAll(string(reason), "-", "_"))
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You are not allowed to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "Some fields are invalid."
	case http.StatusTooManyRequests:
		return "Too many requests. Please slow down."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}
