package app

import (
	"context"
	"net/http"

	"github.com/frankbot/frank/internal/apperrors"
	"github.com/frankbot/frank/internal/auth"
	"github.com/frankbot/frank/internal/config"
	"github.com/frankbot/frank/internal/invitations"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the routes call into.
type Services struct {
	Ingester invitations.Ingester
	Reader   invitations.Reader
	Recorder invitations.ErrorRecorder
	DB       Pinger
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)                      // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)          // Add request ID to context
	r.Use(LoggingMiddleware)                      // Structured request logging
	r.Use(RecoveryMiddleware(svc.Recorder))       // Recover from panics
	r.Use(middleware.CleanPath)                   // Collapse duplicate slashes from mail relays
	r.Use(middleware.Timeout(httpHandlerTimeout)) // Bound handler time below the server write timeout

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(svc.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/calendar/invites", func(r chi.Router) {
		// Intake webhook called by the mail relay
		r.With(
			auth.BasicAuth(cfg.IntakeUser, cfg.IntakePasswordHash),
			IntakeRateLimitMiddleware(cfg.RateLimitRPM),
		).Post("/incoming", invitations.HandleIncoming(svc.Ingester, cfg.BaseURL, cfg.MaxBodyBytes))

		// Read-only views
		r.Group(func(r chi.Router) {
			if len(cfg.CORSAllowedOrigins) > 0 {
				r.Use(cors.Handler(cors.Options{
					AllowedOrigins: cfg.CORSAllowedOrigins,
					AllowedMethods: []string{"GET", "OPTIONS"},
					AllowedHeaders: []string{"Accept", "Content-Type", apperrors.RequestIDHeader},
					ExposedHeaders: []string{apperrors.RequestIDHeader},
					MaxAge:         300,
				}))
			}
			r.Use(NoCacheMiddleware)

			r.Get("/{invite_id}", invitations.HandleShow(svc.Reader, cfg.BaseURL))
			r.Get("/{invite_id}/invite.ics", invitations.HandleICS(svc.Reader, invitations.ICSOptions{
				BaseURL:    cfg.BaseURL,
				MailDomain: cfg.MailDomain,
			}))
		})
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			apperrors.WriteServiceUnavailable(w, r, "Database not configured")
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
