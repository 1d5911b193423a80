package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/sso-handoff/config"
	"github.com/ErlanBelekov/sso-handoff/internal/audit"
	"github.com/ErlanBelekov/sso-handoff/internal/health"
	"github.com/ErlanBelekov/sso-handoff/internal/infrastructure/memory"
	"github.com/ErlanBelekov/sso-handoff/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/sso-handoff/internal/log"
	"github.com/ErlanBelekov/sso-handoff/internal/metrics"
	"github.com/ErlanBelekov/sso-handoff/internal/redirect"
	"github.com/ErlanBelekov/sso-handoff/internal/scheduler"
	"github.com/ErlanBelekov/sso-handoff/internal/session"
	"github.com/ErlanBelekov/sso-handoff/internal/token"
	httptransport "github.com/ErlanBelekov/sso-handoff/internal/transport/http"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/handler"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/ErlanBelekov/sso-handoff/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

const sessionCookie = "sso_auth_session"

func main() {
	cfg, err := config.LoadAuth()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Audit trail: postgres when configured, log-only otherwise
	deps := map[string]health.Pinger{}
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		deps["postgres"] = pool
		logger.Info("db connected")
	}
	auditRepo := audit.NewRecorder(pool, logger)

	// Users and tokens
	users, err := memory.NewDemoUserRepository(0)
	if err != nil {
		stop()
		log.Fatalf("seed users: %v", err)
	}
	store := token.NewStore(users, token.WithTTL(cfg.TokenTTL))

	guard := redirect.NewGuard(cfg.AllowedRedirectOrigins)
	if len(guard.Origins()) == 0 {
		logger.Warn("no valid redirect origins configured, every login will land on the home page")
	}
	logger.Info("redirect allow-list", "origins", guard.Origins())

	authUsecase := usecase.NewAuthUsecase(users, store, guard, auditRepo, logger)

	sessions := session.NewManager([]byte(cfg.SessionSecret), sessionCookie, cfg.SessionTTL,
		session.WithSecureCookie(cfg.SecureCookies()))

	var demo []handler.DemoAccount
	if cfg.Env == "local" {
		for _, u := range memory.DemoUsers {
			demo = append(demo, handler.DemoAccount{Username: u.Username, Password: u.Password, Roles: u.Roles})
		}
	}
	authHandler := handler.NewAuthHandler(authUsecase, sessions, cfg.SecureCookies(), demo, logger)

	sweeper, err := scheduler.NewSweeper(store, cfg.SweepSchedule, logger)
	if err != nil {
		stop()
		log.Fatalf("sweeper: %v", err)
	}
	go sweeper.Start(ctx)

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewAuthRouter(logger, authHandler, httptransport.AuthRouterConfig{
			APISecret: cfg.APISecret,
			Sessions:  sessions,
			Limiter:   middleware.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.LoginRateBurst),
			HSTS:      cfg.SecureCookies(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("auth server started", "port", cfg.Port, "token_ttl", cfg.TokenTTL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
