package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/booking"
	"github.com/example/seatserve/internal/persistence/appstore"
	"github.com/example/seatserve/internal/suggestion"
)

// TokenSecret keys session digests in fixture-built auth services.
const TokenSecret = "fixture-secret-0123456789abcdef"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Policy      booking.Policy
	Outbox      *Outbox
	Generator   suggestion.Generator
	Publisher   application.SnapshotPublisher
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(),
		Policy:      booking.DefaultPolicy(),
		Outbox:      &Outbox{},
		Generator:   suggestion.NewHeuristicGenerator(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator()
	}
	if factory.Outbox == nil {
		factory.Outbox = &Outbox{}
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithPolicy overrides the booking rules.
func WithPolicy(policy booking.Policy) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Policy = policy
	}
}

// WithGenerator swaps the suggestion generator.
func WithGenerator(generator suggestion.Generator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Generator = generator
	}
}

// WithPublisher receives every recomputed snapshot.
func WithPublisher(publisher application.SnapshotPublisher) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Publisher = publisher
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services groups the application services wired over one set of
// repositories.
type Services struct {
	Auth        *application.AuthService
	Users       *application.UserService
	Desks       *application.DeskService
	Holidays    *application.HolidayService
	Bookings    *application.BookingService
	Suggestions *application.SuggestionService
}

// NewServices wires every application service over repos the same way the
// server does, with the factory clock and identifiers.
func (f *ServiceFactory) NewServices(repos appstore.Repositories) *Services {
	now := f.Clock.NowFunc()

	opts := []application.BookingServiceOption{
		application.WithPolicy(f.Policy),
		application.WithBookingLogger(f.Logger),
	}
	if f.Publisher != nil {
		opts = append(opts, application.WithSnapshotPublisher(f.Publisher))
	}
	bookings := application.NewBookingService(repos.Bookings, repos.Desks, repos.Holidays, repos.Users, f.IDGenerator.Func(KindBooking), now, opts...)

	auth := application.NewAuthServiceWithLogger(repos.Credentials, repos.Sessions, repos.PasswordResets, f.Outbox, application.AuthConfig{
		TokenSecret:  []byte(TokenSecret),
		HashPassword: fastHash,
		IDGenerator:  f.IDGenerator.Func(KindAccount),
		Now:          now,
	}, f.Logger)

	orchestrator := suggestion.NewOrchestrator(application.NewSuggestionSource(repos.Users, bookings), f.Generator)

	return &Services{
		Auth:        auth,
		Users:       application.NewUserServiceWithLogger(repos.Users, repos.Sessions, now, f.Logger),
		Desks:       application.NewDeskServiceWithLogger(repos.Desks, repos.Bookings, bookings, now, f.Logger),
		Holidays:    application.NewHolidayServiceWithLogger(repos.Holidays, bookings, f.IDGenerator.Func(KindHoliday), now, f.Logger),
		Bookings:    bookings,
		Suggestions: application.NewSuggestionServiceWithLogger(orchestrator, repos.Users, bookings, 5*time.Second, nil, now, f.Logger),
	}
}

// fastHashParams keeps signup cheap in tests. Verification reads the
// parameters back from the encoded hash.
var fastHashParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func fastHash(password string) (string, error) {
	return application.CreatePasswordHash(password, fastHashParams)
}
