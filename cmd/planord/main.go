// Command planord serves the workload allocation and time-tracking API.
//
// Usage:
//
//	planord serve            # run the HTTP API
//	planord migrate          # run database migrations and exit
//	planord seed -f seed.yml # load a YAML fixture
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planor-io/planor/internal/api"
	"github.com/planor-io/planor/internal/assignment"
	"github.com/planor-io/planor/internal/budget"
	"github.com/planor-io/planor/internal/calendar"
	"github.com/planor-io/planor/internal/config"
	"github.com/planor-io/planor/internal/depgate"
	"github.com/planor-io/planor/internal/health"
	"github.com/planor-io/planor/internal/metrics"
	"github.com/planor-io/planor/internal/seed"
	"github.com/planor-io/planor/internal/store"
	"github.com/planor-io/planor/internal/taskstatus"
	"github.com/planor-io/planor/internal/tasks"
	"github.com/planor-io/planor/internal/tracker"
)

func main() {
	root := &cobra.Command{
		Use:           "planord",
		Short:         "Workload allocation and time-tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// setup loads config, configures logging, and opens the store.
func setup() (*config.Config, zerolog.Logger, *store.Store, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	cfg, err := config.Load()
	if err != nil {
		return nil, logger, nil, err
	}

	if cfg.Development() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = logger

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		return nil, logger, nil, err
	}
	st.SetTxMaxAttempts(cfg.TxMaxAttempts)
	return cfg, logger, st, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			logger.Info().
				Str("environment", cfg.Environment).
				Str("listen_addr", cfg.ListenAddr).
				Str("db_path", cfg.DBPath).
				Msg("starting planord")

			checker := health.NewChecker(logger)
			checker.Register("store", func(ctx context.Context) health.Status {
				if err := st.Ping(ctx); err != nil {
					return health.StatusDown
				}
				return health.StatusOK
			})

			m := metrics.New()
			validator := budget.NewValidator(st, logger)
			gate := depgate.NewGate(st, logger)

			svcs := api.Services{
				Assignments: assignment.NewService(st, validator, gate, logger),
				Budget:      validator,
				Gate:        gate,
				Scheduler:   calendar.NewScheduler(st, logger),
				Tracker:     tracker.NewTracker(st, logger),
				Statuses:    taskstatus.NewService(st, logger),
				Tasks:       tasks.NewService(st, gate, logger),
			}

			server := api.NewServer(api.ServerConfig{
				ListenAddr:  cfg.ListenAddr,
				CORSOrigins: cfg.CORSOrigins,
			}, svcs, checker, m, logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := server.ShutdownWithContext(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown error")
			}

			logger.Info().Msg("planord stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			// store.New runs migrations on open.
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}
			return seed.Apply(cmd.Context(), st, fixture, logger)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "fixture file to load")
	return cmd
}
