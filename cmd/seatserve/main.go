// Command seatserve runs the desk booking API and its maintenance tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/seatserve/internal/application"
	"github.com/example/seatserve/internal/config"
	"github.com/example/seatserve/internal/logging"
	"github.com/example/seatserve/internal/persistence/sqlite"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "seatserve",
		Short:         "Desk booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadEnvFile(envFile)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment when present")

	serve := newServeCommand(out)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCommand(out), newSeedCommand(out), newVersionCommand(out))
	return root
}

func newServeCommand(out io.Writer) *cobra.Command {
	var seedDesks bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(out)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger, seedDesks)
		},
	}
	cmd.Flags().BoolVar(&seedDesks, "seed-default-desks", false, "add the stock desk inventory before serving")
	return cmd
}

func newMigrateCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(out)
			if err != nil {
				return err
			}
			return migrateDatabase(cfg, logger)
		},
	}
}

func newSeedCommand(out io.Writer) *cobra.Command {
	var seedFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load desks and holidays from a YAML file, or the stock desks when no file is given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(out)
			if err != nil {
				return err
			}
			seed := config.Seed{}
			if seedFile != "" {
				if seed, err = config.LoadSeedFile(seedFile); err != nil {
					return err
				}
			}
			return runSeed(cmd.Context(), cfg, logger, seed)
		},
	}
	cmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed file with desks and holidays")
	return cmd
}

func newVersionCommand(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seatserve %s\n", Version)
		},
	}
}

func loadConfig(out io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(out, cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, seedDesks bool) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			logger.Error("shutdown incomplete", "error", cerr)
		}
	}()

	if seedDesks {
		if _, err := a.desks.SeedDefaultDesks(ctx, nil); err != nil {
			return fmt.Errorf("seed desks: %w", err)
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: snapshot streams stay open for the life of the client.
		IdleTimeout: 60 * time.Second,
	}

	a.jobs.Start()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("seatserve API listening", "addr", server.Addr, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func migrateDatabase(cfg config.Config, logger *slog.Logger) error {
	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer pool.Close()

	if err := sqlite.Migrate(pool); err != nil {
		return err
	}
	version, dirty, err := sqlite.Version(pool)
	if err != nil {
		return err
	}
	logger.Info("database migrated", "version", version, "dirty", dirty)
	return nil
}

// seedPrincipal is the actor recorded for holidays created by the seed command.
var seedPrincipal = application.Principal{UserID: "seed", IsAdmin: true}

func runSeed(ctx context.Context, cfg config.Config, logger *slog.Logger, seed config.Seed) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	added, err := a.desks.SeedDefaultDesks(ctx, seed.Desks)
	if err != nil {
		return fmt.Errorf("seed desks: %w", err)
	}

	holidays := 0
	for _, h := range seed.Holidays {
		_, err := a.holidays.CreateHoliday(ctx, application.CreateHolidayParams{
			Principal: seedPrincipal,
			Date:      h.Date,
			Name:      h.Name,
		})
		if errors.Is(err, application.ErrAlreadyExists) {
			logger.Info("holiday already present", "date", h.Date)
			continue
		}
		if err != nil {
			return fmt.Errorf("seed holiday %s: %w", h.Date, err)
		}
		holidays++
	}

	logger.Info("seed complete", "desks_added", added, "holidays_added", holidays)
	return nil
}
