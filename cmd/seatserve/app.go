package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/config"
	"github.com/example/seatserve/internal/events"
	httptransport "github.com/example/seatserve/internal/http"
	"github.com/example/seatserve/internal/metrics"
	"github.com/example/seatserve/internal/notify"
	"github.com/example/seatserve/internal/persistence/appstore"
	"github.com/example/seatserve/internal/persistence/sqlite"
	"github.com/example/seatserve/internal/suggestion"
	"github.com/example/seatserve/internal/worker"
)

const natsConnectTimeout = 30 * time.Second

// app owns every long-lived collaborator of the server process.
type app struct {
	cfg    config.Config
	logger *slog.Logger

	store    *sqlite.Store
	feed     *events.Feed
	nats     *nats.Conn
	bridge   *events.Bridge
	registry *prometheus.Registry
	limiter  *httptransport.RateLimiter
	jobs     *worker.Scheduler

	auth        *application.AuthService
	users       *application.UserService
	desks       *application.DeskService
	holidays    *application.HolidayService
	bookings    *application.BookingService
	suggestions *application.SuggestionService

	handler http.Handler
}

// newApp opens storage and wires services, transport and background jobs.
// The caller must Close the returned app.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		feed:     events.NewFeed(logger),
		registry: prometheus.NewRegistry(),
	}
	if err := a.wire(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	now := time.Now

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(a.registry)

	if cfg.NATSURL != "" {
		conn, err := events.ConnectNATS(ctx, cfg.NATSURL, natsConnectTimeout, logger)
		if err != nil {
			return err
		}
		a.nats = conn
		a.bridge = events.NewBridge(conn, cfg.NATSSubject, logger)
		a.bridge.Attach(a.feed)
	}

	mailer, err := newMailer(cfg.Email, logger)
	if err != nil {
		return err
	}

	repos := appstore.New(a.store)
	userRepo, sessions := repos.Users, repos.Sessions
	deskRepo, holidayRepo, bookingRepo := repos.Desks, repos.Holidays, repos.Bookings

	policy := booking.DefaultPolicy()
	policy.CutoffHour = cfg.CutoffHour
	policy.HorizonWorkingDays = cfg.HorizonWorkingDays

	a.bookings = application.NewBookingService(bookingRepo, deskRepo, holidayRepo, userRepo, uuid.NewString, now,
		application.WithPolicy(policy),
		application.WithMetrics(collector),
		application.WithSnapshotPublisher(a.feed),
		application.WithBookingLogger(logger),
	)
	a.desks = application.NewDeskServiceWithLogger(deskRepo, bookingRepo, a.bookings, now, logger)
	a.holidays = application.NewHolidayServiceWithLogger(holidayRepo, a.bookings, uuid.NewString, now, logger)
	a.users = application.NewUserServiceWithLogger(userRepo, sessions, now, logger)
	a.auth = application.NewAuthServiceWithLogger(repos.Credentials, sessions, repos.PasswordResets, mailer, application.AuthConfig{
		AllowedEmailDomain: cfg.AllowedEmailDomain,
		SessionTTL:         cfg.SessionTTL,
		AppURL:             cfg.AppURL,
		TokenSecret:        []byte(cfg.SessionSecret),
		IDGenerator:        uuid.NewString,
		Now:                now,
	}, logger)

	orchestrator := suggestion.NewOrchestrator(
		application.NewSuggestionSource(userRepo, a.bookings),
		newGenerator(cfg, logger),
		suggestion.WithLogger(logger),
	)
	a.suggestions = application.NewSuggestionServiceWithLogger(orchestrator, userRepo, a.bookings, cfg.SuggestionTimeout, collector, now, logger)

	a.jobs = worker.NewScheduler(logger, time.Minute)
	if err := a.jobs.Register(worker.PruneSchedule, worker.NewPruneJob(a.auth)); err != nil {
		return err
	}

	a.limiter = httptransport.NewRateLimiter(httptransport.PerMinute(cfg.SuggestionRatePerMinute), logger)
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:              httptransport.NewAuthHandler(a.auth, logger),
		Users:             httptransport.NewUserHandler(a.users, logger),
		Desks:             httptransport.NewDeskHandler(a.desks, logger),
		Holidays:          httptransport.NewHolidayHandler(a.holidays, logger),
		Bookings:          httptransport.NewBookingHandler(a.bookings, logger),
		Snapshots:         httptransport.NewSnapshotHandler(a.bookings, a.feed, logger),
		Suggestions:       httptransport.NewSuggestionHandler(a.suggestions, logger),
		Sessions:          a.auth,
		SuggestionLimiter: a.limiter,
		Metrics:           metrics.Handler(a.registry),
		StatusRecorder:    collector,
		CORSOrigins:       cfg.CORSOrigins,
		Logger:            logger,
	})

	// Prime the feed so the first stream subscriber gets a snapshot immediately.
	a.bookings.NotifyChanged(ctx)
	return nil
}

func newMailer(cfg config.EmailConfig, logger *slog.Logger) (notify.Sender, error) {
	if !cfg.Enabled() {
		logger.Info("email relay not configured, reset mail will be logged")
		return notify.NewLogSender(logger), nil
	}
	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure email: %w", err)
	}
	return sender, nil
}

func newGenerator(cfg config.Config, logger *slog.Logger) suggestion.Generator {
	if cfg.OpenAIAPIKey == "" {
		logger.Info("no OpenAI key configured, using heuristic suggestions")
		return suggestion.NewHeuristicGenerator()
	}
	client := suggestion.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, &http.Client{Timeout: cfg.SuggestionTimeout})
	return suggestion.NewOpenAIGenerator(client,
		suggestion.WithModel(cfg.OpenAIModel),
		suggestion.WithGeneratorLogger(logger),
	)
}

// Close stops background work and releases storage. It is safe on a
// partially wired app.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop jobs: %w", err))
		}
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.bridge != nil {
		a.bridge.Detach()
	}
	if a.nats != nil {
		if err := a.nats.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("drain nats: %w", err))
		}
	}
	if a.feed != nil {
		a.feed.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
