// Package config loads runtime settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 20 * time.Second
	defaultCardsCollection = "cards"
	defaultFeedback        = "feedback"
	defaultSignedURLTTL    = 15 * time.Minute
	defaultCaptureTimeout  = 30 * time.Second
	defaultExportFactor    = 6.0
	defaultLockTTL         = 2 * time.Minute
	defaultSaveDelay       = time.Second
	defaultNotifyMode      = NotifyDirect
	defaultOIDCJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	defaultOIDCIssuer      = "https://accounts.google.com"
	defaultLogLevel        = "info"
	defaultServiceName     = "cardify-api"
)

// Notification delivery modes.
const (
	NotifyDisabled = "disabled"
	NotifyDirect   = "direct"
	NotifyQueue    = "queue"
)

var errSecretResolverNotConfigured = errors.New("config: secret resolver not configured")

// Config groups all runtime settings by concern.
type Config struct {
	Server        ServerConfig
	Firebase      FirebaseConfig
	Firestore     FirestoreConfig
	Storage       StorageConfig
	Redis         RedisConfig
	Export        ExportConfig
	Editor        EditorConfig
	Gallery       GalleryConfig
	Notifications NotificationConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// PublicBaseURL is the externally visible origin, e.g. https://cards.example.com.
	PublicBaseURL string
}

// FirebaseConfig holds Admin SDK and Identity Toolkit settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	WebAPIKey       string
}

// FirestoreConfig holds the document store settings.
type FirestoreConfig struct {
	ProjectID          string
	EmulatorHost       string
	CardsCollection    string
	FeedbackCollection string
}

// StorageConfig names the buckets used for uploads and exported files.
type StorageConfig struct {
	AssetsBucket  string
	ExportsBucket string
	SignedURLTTL  time.Duration
	SignerEmail   string
	// SignerKey is a service account key JSON body, usually a secret reference.
	SignerKey string
}

// RedisConfig enables the distributed export lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	CaptureTimeout time.Duration
	Factor         float64
	LockTTL        time.Duration
	// ImageHosts, when set, limits remote card images to these hosts.
	ImageHosts []string
}

// EditorConfig tunes the wizard persistence.
type EditorConfig struct {
	SaveDelay time.Duration
}

// GalleryConfig controls the shareable gallery link.
type GalleryConfig struct {
	// BaseURL is the viewer page; links take the form BaseURL?images=...
	BaseURL string
	// AssetOrigin is the origin remote images must allow for rasterization.
	AssetOrigin string
}

// NotificationConfig configures SES/SNS delivery.
type NotificationConfig struct {
	Mode             string
	AWSRegion        string
	SenderEmail      string
	SenderName       string
	FeedbackTemplate string
	AdminEmail       string
	AdminPhone       string
	Topic            string
}

// SecurityConfig covers push-request verification for the notifier.
type SecurityConfig struct {
	OIDC OIDCConfig
}

// OIDCConfig validates Pub/Sub push tokens.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel    string
	ServiceName string
	Environment string
}

// SecretResolver dereferences secret:// references.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists missing or invalid settings.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the failing field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError wraps a failed secret lookup.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the dotenv path. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that win over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver resolves sm:// and secret:// values.
func WithSecretResolver(r SecretResolver) Option {
	return func(o *loaderOptions) {
		if r != nil {
			o.secret = r
		}
	}
}

// Load reads configuration. Precedence from lowest to highest is the dotenv
// file, the process environment, then WithEnvMap.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	dotenv, err := readDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := options.envMap[key]; ok {
			return v, true
		}
		if options.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotenv[key]
		return v, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            str(lookup, "CARDIFY_SERVER_PORT", defaultPort),
			ReadTimeout:     duration(lookup, "CARDIFY_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    duration(lookup, "CARDIFY_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     duration(lookup, "CARDIFY_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: duration(lookup, "CARDIFY_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			PublicBaseURL:   strings.TrimRight(str(lookup, "CARDIFY_PUBLIC_BASE_URL", ""), "/"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       str(lookup, "CARDIFY_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: str(lookup, "CARDIFY_FIREBASE_CREDENTIALS_FILE", ""),
			WebAPIKey:       str(lookup, "CARDIFY_FIREBASE_WEB_API_KEY", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:          str(lookup, "CARDIFY_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:       str(lookup, "FIRESTORE_EMULATOR_HOST", ""),
			CardsCollection:    str(lookup, "CARDIFY_FIRESTORE_CARDS_COLLECTION", defaultCardsCollection),
			FeedbackCollection: str(lookup, "CARDIFY_FIRESTORE_FEEDBACK_COLLECTION", defaultFeedback),
		},
		Storage: StorageConfig{
			AssetsBucket:  str(lookup, "CARDIFY_STORAGE_ASSETS_BUCKET", ""),
			ExportsBucket: str(lookup, "CARDIFY_STORAGE_EXPORTS_BUCKET", ""),
			SignedURLTTL:  duration(lookup, "CARDIFY_STORAGE_SIGNED_URL_TTL", defaultSignedURLTTL),
			SignerEmail:   str(lookup, "CARDIFY_STORAGE_SIGNER_EMAIL", ""),
			SignerKey:     str(lookup, "CARDIFY_STORAGE_SIGNER_KEY", ""),
		},
		Redis: RedisConfig{
			Addr:     str(lookup, "CARDIFY_REDIS_ADDR", ""),
			Password: str(lookup, "CARDIFY_REDIS_PASSWORD", ""),
			DB:       integer(lookup, "CARDIFY_REDIS_DB", 0),
		},
		Export: ExportConfig{
			CaptureTimeout: duration(lookup, "CARDIFY_EXPORT_CAPTURE_TIMEOUT", defaultCaptureTimeout),
			Factor:         float(lookup, "CARDIFY_EXPORT_FACTOR", defaultExportFactor),
			LockTTL:        duration(lookup, "CARDIFY_EXPORT_LOCK_TTL", defaultLockTTL),
			ImageHosts:     csv(lookup, "CARDIFY_EXPORT_IMAGE_HOSTS"),
		},
		Editor: EditorConfig{
			SaveDelay: duration(lookup, "CARDIFY_EDITOR_SAVE_DELAY", defaultSaveDelay),
		},
		Gallery: GalleryConfig{
			BaseURL:     str(lookup, "CARDIFY_GALLERY_BASE_URL", ""),
			AssetOrigin: str(lookup, "CARDIFY_GALLERY_ASSET_ORIGIN", ""),
		},
		Notifications: NotificationConfig{
			Mode:             strings.ToLower(str(lookup, "CARDIFY_NOTIFY_MODE", defaultNotifyMode)),
			AWSRegion:        str(lookup, "CARDIFY_NOTIFY_AWS_REGION", ""),
			SenderEmail:      str(lookup, "CARDIFY_NOTIFY_SENDER_EMAIL", ""),
			SenderName:       str(lookup, "CARDIFY_NOTIFY_SENDER_NAME", "Cardify"),
			FeedbackTemplate: str(lookup, "CARDIFY_NOTIFY_FEEDBACK_TEMPLATE", ""),
			AdminEmail:       str(lookup, "CARDIFY_NOTIFY_ADMIN_EMAIL", ""),
			AdminPhone:       str(lookup, "CARDIFY_NOTIFY_ADMIN_PHONE", ""),
			Topic:            str(lookup, "CARDIFY_NOTIFY_TOPIC", ""),
		},
		Security: SecurityConfig{
			OIDC: OIDCConfig{
				JWKSURL:  str(lookup, "CARDIFY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience: str(lookup, "CARDIFY_OIDC_AUDIENCE", ""),
				Issuers:  csv(lookup, "CARDIFY_OIDC_ISSUERS"),
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    str(lookup, "LOG_LEVEL", defaultLogLevel),
			ServiceName: str(lookup, "CARDIFY_SERVICE_NAME", defaultServiceName),
			Environment: str(lookup, "CARDIFY_ENVIRONMENT", "local"),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Gallery.BaseURL == "" && cfg.Server.PublicBaseURL != "" {
		cfg.Gallery.BaseURL = cfg.Server.PublicBaseURL + "/gallery"
	}
	if cfg.Gallery.AssetOrigin == "" {
		cfg.Gallery.AssetOrigin = cfg.Server.PublicBaseURL
	}
	if len(cfg.Security.OIDC.Issuers) == 0 {
		cfg.Security.OIDC.Issuers = []string{defaultOIDCIssuer}
	}

	for _, field := range []*string{&cfg.Firebase.WebAPIKey, &cfg.Redis.Password, &cfg.Storage.SignerKey} {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !IsSecretReference(trimmed) {
		return value, nil
	}
	ref := "secret://" + strings.TrimPrefix(strings.TrimPrefix(trimmed, "secret://"), "sm://")
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

// IsSecretReference reports whether value points at Secret Manager.
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, "secret://") || strings.HasPrefix(value, "sm://")
}

func validate(cfg Config) error {
	var missing []string
	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Firebase.ProjectID == "" {
		missing = append(missing, "Firebase.ProjectID")
	}
	if cfg.Storage.AssetsBucket == "" {
		missing = append(missing, "Storage.AssetsBucket")
	}
	if cfg.Export.CaptureTimeout <= 0 {
		missing = append(missing, "Export.CaptureTimeout")
	}
	if cfg.Export.Factor <= 0 {
		missing = append(missing, "Export.Factor")
	}
	switch cfg.Notifications.Mode {
	case NotifyDisabled:
	case NotifyDirect:
		if cfg.Notifications.SenderEmail == "" {
			missing = append(missing, "Notifications.SenderEmail")
		}
	case NotifyQueue:
		if cfg.Notifications.Topic == "" {
			missing = append(missing, "Notifications.Topic")
		}
	default:
		missing = append(missing, "Notifications.Mode")
	}
	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func str(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func duration(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func integer(lookup func(string) (string, bool), key string, fallback int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func float(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func csv(lookup func(string) (string, bool), key string) []string {
	raw, _ := lookup(key)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
