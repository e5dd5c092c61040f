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

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cardify/api/internal/export"
	"github.com/cardify/api/internal/handlers"
	"github.com/cardify/api/internal/notifications"
	"github.com/cardify/api/internal/platform/auth"
	"github.com/cardify/api/internal/platform/config"
	pfirestore "github.com/cardify/api/internal/platform/firestore"
	"github.com/cardify/api/internal/platform/idempotency"
	"github.com/cardify/api/internal/platform/jobs"
	"github.com/cardify/api/internal/platform/lock"
	"github.com/cardify/api/internal/platform/observability"
	"github.com/cardify/api/internal/platform/secrets"
	platformstorage "github.com/cardify/api/internal/platform/storage"
	"github.com/cardify/api/internal/render"
	"github.com/cardify/api/internal/repositories"
	firestoreRepo "github.com/cardify/api/internal/repositories/firestore"
	"github.com/cardify/api/internal/services"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	// The pipeline adds its own "export:" segment to lock keys.
	exportLockPrefix = "cardify:"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	fetcher, err := newSecretFetcher(ctx, logger)
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
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := observability.NewHTTPMetrics(registry)

	var clientOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore, pfirestore.WithClientOptions(clientOpts...))
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	cardRepo, err := firestoreRepo.NewCardRepository(firestoreProvider, cfg.Firestore.CardsCollection)
	if err != nil {
		logger.Fatal("failed to initialise card repository", zap.Error(err))
	}
	feedbackRepo, err := firestoreRepo.NewFeedbackRepository(firestoreProvider, cfg.Firestore.FeedbackCollection)
	if err != nil {
		logger.Fatal("failed to initialise feedback repository", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = lock.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("redis not configured; export lock and idempotency are process-local")
	}

	storageClient, err := cloudstorage.NewClient(ctx, clientOpts...)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()
	objects := platformstorage.NewObjects(storageClient)

	var downloadSigner services.DownloadSigner
	if key := strings.TrimSpace(cfg.Storage.SignerKey); key != "" {
		keySigner, err := platformstorage.NewKeySignerFromJSON([]byte(key))
		if err != nil {
			logger.Fatal("failed to parse storage signer key", zap.Error(err))
		}
		urlSigner, err := platformstorage.NewURLSigner(keySigner)
		if err != nil {
			logger.Fatal("failed to initialise url signer", zap.Error(err))
		}
		downloadSigner = urlSigner
	} else {
		logger.Info("storage signer key not configured; link delivery disabled")
	}

	firebaseAdmin, err := auth.NewFirebaseAdmin(ctx, cfg.Firebase, auth.WithRevocationCheck())
	if err != nil {
		logger.Fatal("failed to initialise firebase admin", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseAdmin)

	identityToolkit, err := auth.NewIdentityToolkit(ctx, cfg.Firebase.WebAPIKey)
	if err != nil {
		logger.Fatal("failed to initialise identity toolkit", zap.Error(err))
	}

	notifier, closeNotifier, err := newNotifier(ctx, logger.Named("notifications"), cfg)
	if err != nil {
		logger.Fatal("failed to initialise notifier", zap.Error(err))
	}
	defer closeNotifier()

	editorService, err := services.NewEditorService(services.EditorServiceDeps{
		Cards:     cardRepo,
		SaveDelay: cfg.Editor.SaveDelay,
		Logger:    logger.Named("editor"),
	})
	if err != nil {
		logger.Fatal("failed to initialise editor service", zap.Error(err))
	}
	defer func() {
		if err := editorService.Close(); err != nil {
			logger.Warn("editor close error", zap.Error(err))
		}
	}()

	cardService, err := services.NewCardService(services.CardServiceDeps{Cards: editorService})
	if err != nil {
		logger.Fatal("failed to initialise card service", zap.Error(err))
	}

	uploadService, err := services.NewUploadService(services.UploadServiceDeps{
		Objects:      objects,
		AssetsBucket: cfg.Storage.AssetsBucket,
	})
	if err != nil {
		logger.Fatal("failed to initialise upload service", zap.Error(err))
	}

	pipelineOpts := []export.Option{
		export.WithImageLoader(render.NewLoader(
			render.WithOrigin(cfg.Gallery.AssetOrigin),
			render.WithAllowedHosts(cfg.Export.ImageHosts...),
		)),
		export.WithFactor(cfg.Export.Factor),
		export.WithCaptureTimeout(cfg.Export.CaptureTimeout),
		export.WithGalleryOrigin(cfg.Server.PublicBaseURL),
		export.WithGalleryAssets(uploadService),
		export.WithMetrics(export.NewMetrics(registry)),
		export.WithLogger(logger.Named("export")),
	}
	if redisClient != nil {
		locker, err := lock.NewRedisLocker(redisClient, lock.WithPrefix(exportLockPrefix))
		if err != nil {
			logger.Fatal("failed to initialise export lock", zap.Error(err))
		}
		pipelineOpts = append(pipelineOpts, export.WithLocker(locker, cfg.Export.LockTTL))
	}
	pipeline := export.NewPipeline(pipelineOpts...)

	exportService, err := services.NewExportService(services.ExportServiceDeps{
		Cards:         editorService,
		Pipeline:      pipeline,
		Objects:       objects,
		Signer:        downloadSigner,
		ExportsBucket: cfg.Storage.ExportsBucket,
		LinkTTL:       cfg.Storage.SignedURLTTL,
		Logger:        logger.Named("export"),
	})
	if err != nil {
		logger.Fatal("failed to initialise export service", zap.Error(err))
	}

	accountService, err := services.NewAccountService(services.AccountServiceDeps{
		Admin:     firebaseAdmin,
		Passwords: identityToolkit,
		Uploads:   uploadService,
	})
	if err != nil {
		logger.Fatal("failed to initialise account service", zap.Error(err))
	}

	feedbackService, err := services.NewFeedbackService(services.FeedbackServiceDeps{
		Feedback: feedbackRepo,
		Cards:    editorService,
		Notifier: notifier,
		Recipients: notifications.Recipients{
			EmailTemplate: cfg.Notifications.FeedbackTemplate,
			AdminEmail:    cfg.Notifications.AdminEmail,
			AdminPhone:    cfg.Notifications.AdminPhone,
		},
		Clock:  time.Now,
		Logger: logger.Named("feedback"),
	})
	if err != nil {
		logger.Fatal("failed to initialise feedback service", zap.Error(err))
	}

	systemService, err := newSystemService(firestoreProvider, redisClient, fetcher, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	var idempotencyStore idempotency.Store
	if redisClient != nil {
		idempotencyStore = idempotency.NewRedisStore(redisClient, "cardify:idem:")
	}
	idempotencyMiddleware := idempotency.Middleware(idempotencyStore,
		idempotency.WithHeader(idempotencyHeader),
		idempotency.WithTTL(idempotencyTTL),
	)

	cardHandlers := handlers.NewCardHandlers(editorService, cardService, exportService)
	accountHandlers := handlers.NewAccountHandlers(authenticator, accountService)
	feedbackHandlers := handlers.NewFeedbackHandlers(feedbackService)
	uploadHandlers := handlers.NewUploadHandlers(uploadService)
	galleryHandlers := handlers.NewGalleryHandlers()
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)

	httpLogger := logger.Named("http")
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLogger(httpLogger),
		observability.Trace(traceProjectID(cfg)),
		observability.Recovery(httpLogger),
		observability.RequestLogger(httpMetrics),
	}

	var opts []handlers.Option
	opts = append(opts, handlers.WithMiddlewares(middlewares...))
	opts = append(opts, handlers.WithHealthHandlers(healthHandlers))
	opts = append(opts, handlers.WithMetricsHandler(observability.MetricsHandler(registry)))
	opts = append(opts, handlers.WithPublicRoutes(cardHandlers.PublicRoutes))
	opts = append(opts, handlers.WithAuthRoutes(accountHandlers.AuthRoutes))
	opts = append(opts, handlers.WithMeMiddlewares(authenticator.Require(), idempotencyMiddleware))
	opts = append(opts, handlers.WithMeRoutes(
		cardHandlers.Routes,
		accountHandlers.Routes,
		feedbackHandlers.Routes,
		uploadHandlers.Routes,
	))
	opts = append(opts, handlers.WithRootRoutes(galleryHandlers.Routes))

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := httpLogger.With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("cardify api listening", zap.String("version", buildInfo.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
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

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("CARDIFY_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("CARDIFY_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Observability.Environment,
		StartedAt:   started,
	}
}

func newSystemService(provider *pfirestore.Provider, client *redis.Client, fetcher *secrets.Fetcher, build services.BuildInfo) (services.SystemService, error) {
	probes := make([]repositories.Probe, 0, 3)
	if provider != nil {
		probes = append(probes, repositories.Probe{
			Name:     "firestore",
			Critical: true,
			Check:    provider.Ping,
		})
	}
	if client != nil {
		c := client
		probes = append(probes, repositories.Probe{
			Name:    "redis",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				return c.Ping(ctx).Err()
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz"
		probes = append(probes, repositories.Probe{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil || errors.Is(err, secrets.ErrNotFound) {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	repo, err := repositories.NewProbeHealthRepository(probes)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

// newNotifier picks the delivery path for feedback notifications. The
// returned close func is always safe to call.
func newNotifier(ctx context.Context, logger *zap.Logger, cfg config.Config) (notifications.Notifier, func(), error) {
	noop := func() {}
	switch cfg.Notifications.Mode {
	case config.NotifyDisabled:
		logger.Info("notifications disabled")
		return notifications.Discard{}, noop, nil
	case config.NotifyQueue:
		client, err := pubsub.NewClient(ctx, traceProjectID(cfg))
		if err != nil {
			return nil, noop, fmt.Errorf("pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Notifications.Topic)
		publisher, err := jobs.NewPubSubNotificationPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		queue, err := notifications.NewQueueNotifier(publisher, logger)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return queue, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}, nil
	default:
		deliverer, err := newDeliverer(ctx, logger, cfg)
		if err != nil {
			return nil, noop, err
		}
		return deliverer, noop, nil
	}
}

func newDeliverer(ctx context.Context, logger *zap.Logger, cfg config.Config) (*notifications.Deliverer, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Notifications.AWSRegion); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	opts := []notifications.DelivererOption{notifications.WithLogger(logger)}
	mailer, err := notifications.NewSESMailer(ses.NewFromConfig(awsCfg), cfg.Notifications.SenderEmail, cfg.Notifications.SenderName)
	if err != nil {
		return nil, err
	}
	opts = append(opts, notifications.WithEmailer(mailer))
	if cfg.Notifications.AdminPhone != "" {
		texter, err := notifications.NewSNSTexter(sns.NewFromConfig(awsCfg), cfg.Notifications.SenderName)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notifications.WithTexter(texter))
	}
	return notifications.NewDeliverer(opts...), nil
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	defaultProject := strings.TrimSpace(os.Getenv("CARDIFY_SECRET_DEFAULT_PROJECT_ID"))
	if defaultProject == "" {
		defaultProject = strings.TrimSpace(os.Getenv("CARDIFY_FIREBASE_PROJECT_ID"))
	}
	fallbackPath := strings.TrimSpace(os.Getenv("CARDIFY_SECRET_FALLBACK_FILE"))
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
		secrets.WithMeter(otel.Meter("github.com/cardify/api/internal/platform/secrets")),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	return secrets.NewFetcher(ctx, opts...)
}
