package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/frankbot/frank/internal/config"
	"github.com/frankbot/frank/internal/db"
	"github.com/frankbot/frank/internal/errorlog"
	"github.com/frankbot/frank/internal/invitations"
	"github.com/frankbot/frank/internal/meeting"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	serverWriteTimeout = 30 * time.Second
	httpHandlerTimeout = 25 * time.Second
)

// App holds the application state
type App struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Router http.Handler

	server *http.Server
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// Initialize logger
	SetupLogger(cfg.LogLevel)

	log.Info().Msg("Initializing frank")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	// Connect to database
	log.Info().Msg("Connecting to database...")
	pool, err := db.Connect(ctx, cfg.DBDSN, db.WithMaxConns(cfg.DBMaxConns))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	// Run migrations if in dev mode
	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	} else {
		log.Info().Msg("Production mode: migrations must be run with `frank admin migrate`")
	}

	store := invitations.NewPostgresStore(pool)
	recorder := errorlog.NewWriter(pool)
	assembler := invitations.NewAssembler(store, recorder, meeting.NewParser(cfg.DefaultTZ), cfg.IgnoredRecipients)

	router := NewRouter(cfg, Services{
		Ingester: assembler,
		Reader:   store,
		Recorder: recorder,
		DB:       pool,
	})

	app := &App{
		Config: cfg,
		DB:     pool,
		Router: router,
	}

	log.Info().Msg("Application initialized successfully")
	return app, nil
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Shutdown.
func (a *App) Start() error {
	addr := a.Config.HTTPAddr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the database pool.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		log.Info().Msg("Stopping HTTP server")
		err = a.server.Shutdown(ctx)
	}
	a.Close()
	return err
}

// Close gracefully shuts down the application
func (a *App) Close() {
	log.Info().Msg("Shutting down application")
	if a.DB != nil {
		log.Info().Msg("Closing database connection")
		db.Close(a.DB)
	}
}

// SetupLogger configures the global logger
func SetupLogger(level string) {
	// Set up pretty console output for development
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	// Set log level
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logger configured")
}
