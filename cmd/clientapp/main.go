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
	"github.com/ErlanBelekov/sso-handoff/internal/authclient"
	"github.com/ErlanBelekov/sso-handoff/internal/health"
	ctxlog "github.com/ErlanBelekov/sso-handoff/internal/log"
	"github.com/ErlanBelekov/sso-handoff/internal/metrics"
	"github.com/ErlanBelekov/sso-handoff/internal/session"
	httptransport "github.com/ErlanBelekov/sso-handoff/internal/transport/http"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/handler"
	"github.com/ErlanBelekov/sso-handoff/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

const sessionCookie = "sso_client_session"

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authClient := authclient.New(cfg.AuthSystemURL, cfg.AuthAPIKey, cfg.RedeemTimeout)
	sessions := session.NewManager([]byte(cfg.SessionSecret), sessionCookie, cfg.SessionTTL,
		session.WithSecureCookie(cfg.SecureCookies()))

	clientHandler := handler.NewClientHandler(sessions, cfg.AuthSystemURL, cfg.BaseURL)

	metrics.Register(prometheus.DefaultRegisterer)
	checker := health.NewChecker(map[string]health.Pinger{"auth_system": authClient}, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewClientRouter(logger, clientHandler, middleware.PreAuthConfig{
			Redeemer: authClient,
			Sessions: sessions,
			AuthURL:  cfg.AuthSystemURL,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
		}, cfg.SecureCookies()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("client app started", "port", cfg.Port, "auth_system", cfg.AuthSystemURL)
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
