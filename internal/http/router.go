package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter. Nil
// handlers leave their routes unmounted.
type RouterConfig struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Desks       *DeskHandler
	Holidays    *HolidayHandler
	Bookings    *BookingHandler
	Snapshots   *SnapshotHandler
	Suggestions *SuggestionHandler

	Sessions          SessionValidator
	SuggestionLimiter *RateLimiter
	Metrics           http.Handler
	StatusRecorder    StatusRecorder
	CORSOrigins       []string
	Logger            *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger, cfg.StatusRecorder))
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
			ExposedHeaders:   []string{"X-Session-Token", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Post("/auth/signup", cfg.Auth.Signup)
			r.Post("/auth/login", cfg.Auth.Login)
			r.Post("/auth/password-reset", cfg.Auth.RequestPasswordReset)
			r.Post("/auth/password-reset/confirm", cfg.Auth.ConfirmPasswordReset)
		}

		if cfg.Sessions == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(RequireSession(cfg.Sessions, logger))
			requireAdmin := RequireAdmin(logger)

			if cfg.Auth != nil {
				r.Post("/auth/logout", cfg.Auth.Logout)
				r.Post("/auth/refresh", cfg.Auth.Refresh)
				r.Put("/me/password", cfg.Auth.ChangePassword)
			}

			if cfg.Users != nil {
				r.Get("/me", cfg.Users.Me)
				r.Put("/me", cfg.Users.UpdateMe)
				r.Route("/users", func(r chi.Router) {
					r.Use(requireAdmin)
					r.Get("/", cfg.Users.List)
					if cfg.Auth != nil {
						r.Post("/", cfg.Auth.CreateUser)
					}
					r.Put("/{id}", cfg.Users.Update)
					r.Delete("/{id}", cfg.Users.Delete)
				})
			}

			if cfg.Desks != nil {
				r.Get("/desks", cfg.Desks.List)
				r.With(requireAdmin).Post("/desks", cfg.Desks.Create)
				r.With(requireAdmin).Delete("/desks/{id}", cfg.Desks.Delete)
			}

			if cfg.Holidays != nil {
				r.Get("/holidays", cfg.Holidays.List)
				r.With(requireAdmin).Post("/holidays", cfg.Holidays.Create)
				r.With(requireAdmin).Delete("/holidays/{id}", cfg.Holidays.Delete)
			}

			if cfg.Bookings != nil {
				r.Get("/desks/available", cfg.Bookings.AvailableDesks)
				r.Get("/bookings", cfg.Bookings.List)
				r.Post("/bookings", cfg.Bookings.Create)
				r.Delete("/bookings/{id}", cfg.Bookings.Cancel)
				r.Get("/calendar", cfg.Bookings.Calendar)
			}

			if cfg.Snapshots != nil {
				r.Get("/snapshot", cfg.Snapshots.Get)
				r.Get("/snapshot/stream", cfg.Snapshots.Stream)
			}

			if cfg.Suggestions != nil {
				r.Group(func(r chi.Router) {
					if cfg.SuggestionLimiter != nil {
						r.Use(cfg.SuggestionLimiter.Middleware())
					}
					r.Post("/suggestions", cfg.Suggestions.Suggest)
					r.Post("/suggestions/commit", cfg.Suggestions.Commit)
				})
			}
		})
	})

	return r
}
