package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lamitie/server/internal/api"
	"github.com/lamitie/server/internal/config"
	"github.com/lamitie/server/internal/domain/students"
	"github.com/lamitie/server/internal/email"
	"github.com/lamitie/server/internal/jobs"
	"github.com/lamitie/server/internal/metrics"
	"github.com/lamitie/server/internal/storage/postgres"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registration HTTP server",
	Long: `Start the registration HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Connect to PostgreSQL and start the River ticket dispatch workers
- Serve the registration, scan, and admin API endpoints
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting registration server")

	metrics.Init(Version, GitCommit, BuildDate)
	logger.Info().Str("version", Version).Msg("metrics initialized")

	poolCfg, err := newPoolConfig(cfg.Database)
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.NewWithConfig(poolCtx, poolCfg)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}
	if !cfg.Email.Enabled {
		logger.Warn().Msg("email dispatch disabled, tickets will be logged only")
	}

	workers := jobs.NewWorkers(mailer, logger)
	riverClient, err := jobs.NewClient(pool, workers, nil, []rivertype.Hook{metrics.NewRiverMetricsHook()})
	if err != nil {
		return fmt.Errorf("river client init failed: %w", err)
	}

	dispatcher := jobs.NewRiverDispatcher(riverClient)
	studentsService := students.NewService(repo, dispatcher, students.Config{
		UniqueEmail: cfg.Registration.UniqueEmail,
	}, logger)

	// Collect pool gauges every 15 seconds.
	dbCollector := metrics.NewDBCollector(pool)
	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	go dbCollector.Start(collectorCtx, 15*time.Second)
	defer collectorCancel()
	defer dbCollector.Stop()

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("ticket dispatch workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		} else {
			logger.Info().Msg("river workers stopped")
		}
	}()

	handler, routerCleanup := api.NewRouter(api.RouterDeps{
		Config:      cfg,
		Logger:      logger,
		Students:    studentsService,
		Pool:        pool,
		RiverClient: riverClient,
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
	})
	defer routerCleanup()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

// newPoolConfig translates the database settings onto the pgx pool:
// MaxConnections caps the pool, MinConnections keeps that many warm.
func newPoolConfig(db config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, err
	}
	if db.MaxConnections > 0 {
		poolCfg.MaxConns = int32(db.MaxConnections)
	}
	if db.MinConnections > 0 {
		poolCfg.MinConns = int32(db.MinConnections)
	}
	return poolCfg, nil
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		_ = os.Setenv("CONFIG_FILE", configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	// Flags override env.
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
