// Package app wires judgecore's components together and drives the
// process's two run modes: the HTTP API server and the autosave expiry
// listener worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/judgecore/judgecore/internal/auth"
	"github.com/judgecore/judgecore/internal/config"
	"github.com/judgecore/judgecore/internal/httpserver"
	"github.com/judgecore/judgecore/internal/platform"
	"github.com/judgecore/judgecore/internal/store"
	"github.com/judgecore/judgecore/internal/telemetry"
	"github.com/judgecore/judgecore/pkg/autosave"
	"github.com/judgecore/judgecore/pkg/judge"
)

// Run starts judgecore in the mode named by cfg.Mode: "api" serves the
// HTTP surface, "listener" runs the autosave Expiry Listener.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)

	pool, err := platform.NewPostgresPool(ctx, cfg.PostgresURL())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err := platform.RunMigrations(cfg.MigrationsDir, cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sessionRDB, err := platform.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisSessionDB)
	if err != nil {
		return fmt.Errorf("connecting to session redis: %w", err)
	}
	defer sessionRDB.Close()

	codeRDB, err := platform.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisCodeSaveDB)
	if err != nil {
		return fmt.Errorf("connecting to autosave redis: %w", err)
	}
	defer codeRDB.Close()

	userStore := store.NewUserStore(pool)
	codeStore := store.NewCodeStore(pool)
	judgeStore := store.NewJudgeStore(pool)

	codeSaveTTL := time.Duration(cfg.CodeSaveTTLSeconds) * time.Second
	buffer := autosave.NewBuffer(codeRDB, cfg.RedisCodeSavePfx, codeSaveTTL)

	switch cfg.Mode {
	case "listener":
		listener := autosave.NewListener(codeRDB, buffer, codeStore, cfg.RedisCodeSavePfx, logger)
		return listener.Run(ctx)
	default:
		return runAPI(ctx, logger, cfg, pool, sessionRDB, codeRDB, userStore, codeStore, judgeStore, buffer)
	}
}

func runAPI(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	pool *pgxpool.Pool,
	sessionRDB, codeRDB *redis.Client,
	userStore *store.UserStore,
	codeStore *store.CodeStore,
	judgeStore *store.JudgeStore,
	buffer *autosave.Buffer,
) error {
	metrics := telemetry.NewMetricsRegistry()

	sessionTTL := time.Duration(cfg.LocalTokenTTLSecond) * time.Second
	sessionStore, err := auth.NewSessionStore(sessionRDB, cfg.RedisSessionPfx, sessionTTL, cfg.SessionEncKey)
	if err != nil {
		return fmt.Errorf("building session store: %w", err)
	}

	var oidcVerifier *oidc.IDTokenVerifier
	if cfg.SSOOIDCIssuerURL != "" {
		provider, err := oidc.NewProvider(ctx, cfg.SSOOIDCIssuerURL)
		if err != nil {
			logger.Warn("SSO OIDC fast-path unavailable, falling back to remote introspection only", "error", err)
		} else {
			oidcVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
		}
	}

	var clientCreds *clientcredentials.Config
	if cfg.SSOClientID != "" && cfg.SSOClientSecret != "" && cfg.SSOTokenURL != "" {
		clientCreds = &clientcredentials.Config{
			ClientID:     cfg.SSOClientID,
			ClientSecret: cfg.SSOClientSecret,
			TokenURL:     cfg.SSOTokenURL,
		}
	}

	exchanger := auth.NewExchanger(cfg.SSOIntrospectURL, oidcVerifier, clientCreds, userStore)

	loginWindow, err := time.ParseDuration(cfg.LoginRateLimitWindow)
	if err != nil {
		loginWindow = 15 * time.Minute
	}
	rateLimiter := auth.NewRateLimiter(sessionRDB, cfg.LoginRateLimitMax, loginWindow)

	authorizer := auth.NewAuthorizer(sessionStore, userStore, cfg.TokenCookieName, logger)
	authHandler := auth.NewHandler(exchanger, sessionStore, rateLimiter, cfg.TokenCookieName, sessionTTL, logger)

	languages := judge.NewLanguageResolver(judgeStore)
	scheduler := judge.NewScheduler(pool)
	registry := judge.NewRegistry(judgeStore)
	dispatcher := judge.NewDispatcher(languages, scheduler, judgeStore, cfg.JudgeServerToken, cfg.TestCaseDataPath)
	judgeHandler := judge.NewHandler(dispatcher, registry, logger)

	autosaveHandler := autosave.NewHandler(buffer, codeStore, logger)

	srv := httpserver.NewServer(httpserver.Config{AllowedOrigins: cfg.CORSAllowedOrigins}, logger, pool, sessionRDB, codeRDB, metrics)

	srv.APIRouter.Post("/auth/login", authHandler.Login)
	srv.APIRouter.Post("/auth/logout", authHandler.Logout)

	srv.APIRouter.Group(func(r chi.Router) {
		r.Use(authorizer.Middleware)
		r.Get("/auth/test", authHandler.Me)
		r.Post("/execution/run", judgeHandler.Run)
		r.Get("/execution/workers", judgeHandler.Fleet)
		r.Post("/code/{problem_id}", autosaveHandler.Save)
		r.Get("/code/{problem_id}", autosaveHandler.Load)
	})

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("judgecore api listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	}
}
