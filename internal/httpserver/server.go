package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/judgecore/judgecore/internal/telemetry"
)

// Config controls server construction.
type Config struct {
	AllowedOrigins []string
}

// Server wraps the root chi router along with the shared infrastructure
// handlers mount onto.
type Server struct {
	Router  *chi.Mux
	APIRouter chi.Router
	Logger  *slog.Logger
	DB      *pgxpool.Pool
	Metrics *telemetry.Metrics
}

// NewServer builds the root router with request-id, logging, metrics,
// recovery, and CORS middleware, plus health/ready/metrics endpoints.
func NewServer(cfg Config, logger *slog.Logger, db *pgxpool.Pool, sessionRDB, codeRDB *redis.Client, metrics *telemetry.Metrics) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Judge-Server-Token"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
				return
			}
		}
		if sessionRDB != nil {
			if err := sessionRDB.Ping(ctx).Err(); err != nil {
				Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "session redis unavailable"})
				return
			}
		}
		if codeRDB != nil {
			if err := codeRDB.Ping(ctx).Err(); err != nil {
				Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "code redis unavailable"})
				return
			}
		}
		Respond(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	api := chi.NewRouter()
	r.Mount("/api", api)

	return &Server{
		Router:    r,
		APIRouter: api,
		Logger:    logger,
		DB:        db,
		Metrics:   metrics,
	}
}
