package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/notifications"
	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/platform/config"
	"github.com/cardify/api/internal/platform/httpx"
	"github.com/cardify/api/internal/platform/jobs"
	"github.com/cardify/api/internal/platform/observability"
	"github.com/cardify/api/internal/platform/requestctx"
	"github.com/cardify/api/internal/platform/secrets"
)

// deliverer is the subset of notifications.Deliverer the push handler needs.
type deliverer interface {
	Deliver(ctx context.Context, job notifications.Job) error
}

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("notifier")

	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notifications.AWSRegion))
	if err != nil {
		logger.Fatal("failed to load aws configuration", zap.Error(err))
	}
	opts := []notifications.DelivererOption{notifications.WithLogger(logger.Named("deliver"))}
	if cfg.Notifications.SenderEmail != "" {
		mailer, err := notifications.NewSESMailer(ses.NewFromConfig(awsCfg), cfg.Notifications.SenderEmail, cfg.Notifications.SenderName)
		if err != nil {
			logger.Fatal("failed to initialise ses mailer", zap.Error(err))
		}
		opts = append(opts, notifications.WithEmailer(mailer))
	}
	texter, err := notifications.NewSNSTexter(sns.NewFromConfig(awsCfg), cfg.Notifications.SenderName)
	if err != nil {
		logger.Fatal("failed to initialise sns texter", zap.Error(err))
	}
	opts = append(opts, notifications.WithTexter(texter))
	deliver := notifications.NewDeliverer(opts...)

	registry := prometheus.NewRegistry()
	httpLogger := logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(observability.InjectLogger(httpLogger))
	r.Use(observability.Recovery(httpLogger))
	r.Use(observability.RequestLogger(observability.NewHTTPMetrics(registry)))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", observability.MetricsHandler(registry))
	r.Group(func(r chi.Router) {
		r.Use(buildOIDCMiddleware(logger.Named("auth"), cfg))
		r.Post("/push/notifications", pushHandler(deliver))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		httpLogger.Info("notifier listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// pushHandler acks malformed and undeliverable-by-configuration jobs so
// Pub/Sub stops redelivering them; transient send failures return 500.
func pushHandler(d deliverer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := requestctx.Logger(ctx)

		job, env, err := jobs.DecodePush(r)
		if err != nil {
			logger.Warn("dropping invalid push message", zap.Error(err))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		logger = logger.With(zap.String("message_id", env.Message.MessageID), zap.String("job_id", job.ID))

		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := d.Deliver(sendCtx, job); err != nil {
			if errors.Is(err, notifications.ErrChannelDisabled) || errors.Is(err, notifications.ErrInvalidJob) {
				logger.Warn("dropping undeliverable job", zap.Error(err))
				w.WriteHeader(http.StatusNoContent)
				return
			}
			logger.Error("notification delivery failed", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("delivery_failed", "notification delivery failed", http.StatusInternalServerError))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	cache := auth.NewJWKSCache(cfg.Security.OIDC.JWKSURL)
	validator := auth.NewOIDCValidator(cache, logger)

	audience := strings.TrimSpace(cfg.Security.OIDC.Audience)
	if audience == "" {
		logger.Warn("auth: OIDC audience not configured; push requests will be rejected")
	}
	return validator.RequireOIDC(audience, cfg.Security.OIDC.Issuers)
}
