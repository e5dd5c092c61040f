// Package secrets resolves secret:// references against Google Secret
// Manager with an in-process cache and a local fallback file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFallbackPath = ".secrets.local"
	meterName           = "github.com/cardify/api/internal/platform/secrets"
)

// ErrNotFound is returned when neither Secret Manager nor the fallback file
// knows the reference.
var ErrNotFound = errors.New("secrets: not found")

var newSecretManagerClient = func(ctx context.Context, opts ...option.ClientOption) (accessor, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret references. It satisfies config.SecretResolver.
type Fetcher struct {
	client     accessor
	ownsClient bool
	logger     *zap.Logger
	project    string

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string

	latency   metric.Float64Histogram
	cacheHits metric.Int64Counter
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithDefaultProject is used for short references such as secret://name.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) { f.project = strings.TrimSpace(projectID) }
}

// WithFallbackFile points at a dotenv-style file keyed by secret name.
// An empty path disables the fallback.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) { f.fallbackPath = path }
}

// WithMeter overrides the otel meter.
func WithMeter(m metric.Meter) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.initMetrics(m)
		}
	}
}

// WithClient injects a Secret Manager client.
func WithClient(client accessor) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher builds a Fetcher. When no Secret Manager client can be created
// the fetcher serves only the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
		cache:        make(map[string]string),
	}
	f.initMetrics(otel.GetMeterProvider().Meter(meterName))
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		client, err := newSecretManagerClient(ctx)
		if err != nil {
			f.logger.Warn("secrets: secret manager unavailable, using fallback file", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}
	return f, nil
}

func (f *Fetcher) initMetrics(m metric.Meter) {
	f.latency, _ = m.Float64Histogram("secrets.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Secret fetch latency in milliseconds"))
	f.cacheHits, _ = m.Int64Counter("secrets.fetch.cache_hits",
		metric.WithDescription("Secret lookups served from cache"))
}

// Close releases the owned client.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// ResolveSecret implements config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

// Resolve returns the secret for ref. Accepted forms are secret://name,
// secret://name?version=3&project=p and
// secret://projects/p/secrets/name[/versions/v].
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	start := time.Now()
	r, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	if r.project == "" {
		r.project = f.project
	}
	key := r.resource()

	f.mu.RLock()
	value, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		f.record(ctx, start, "cache")
		if f.cacheHits != nil {
			f.cacheHits.Add(ctx, 1)
		}
		return value, nil
	}

	source := "remote"
	value, err = f.remote(ctx, r)
	if err != nil {
		if !fallbackAllowed(err) {
			f.record(ctx, start, "error")
			return "", fmt.Errorf("secrets: fetch %s: %w", r.name, err)
		}
		f.logger.Debug("secrets: using fallback", zap.String("secret", r.name), zap.Error(err))
		var found bool
		value, found = f.lookupFallback(r.name)
		if !found {
			f.record(ctx, start, "error")
			return "", fmt.Errorf("%w: %s", ErrNotFound, r.name)
		}
		source = "fallback"
	}

	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
	f.record(ctx, start, source)
	return value, nil
}

// Invalidate drops a cached value so the next Resolve refetches it.
func (f *Fetcher) Invalidate(ref string) {
	r, err := parseReference(ref)
	if err != nil {
		return
	}
	if r.project == "" {
		r.project = f.project
	}
	f.mu.Lock()
	delete(f.cache, r.resource())
	f.mu.Unlock()
}

var errNoClient = errors.New("secrets: no secret manager client")

func (f *Fetcher) remote(ctx context.Context, r reference) (string, error) {
	if f.client == nil || r.project == "" {
		return "", errNoClient
	}
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: r.resource()})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: empty payload for %s", r.resource())
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) lookupFallback(name string) (string, bool) {
	f.fallbackOnce.Do(func() {
		if f.fallbackPath == "" {
			return
		}
		values, err := godotenv.Read(f.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				f.logger.Warn("secrets: unable to read fallback file", zap.String("path", f.fallbackPath), zap.Error(err))
			}
			return
		}
		f.fallback = values
	})
	value, ok := f.fallback[name]
	return value, ok
}

func (f *Fetcher) record(ctx context.Context, start time.Time, source string) {
	if f.latency == nil {
		return
	}
	f.latency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
		metric.WithAttributes(attribute.String("source", source)))
}

// fallbackAllowed is true for transport failures and missing clients, not
// for authoritative answers such as NotFound or PermissionDenied.
func fallbackAllowed(err error) bool {
	if errors.Is(err, errNoClient) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Unauthenticated, codes.Unknown:
		return true
	}
	return false
}

type reference struct {
	project string
	name    string
	version string
}

func (r reference) resource() string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.project, r.name, r.version)
}

func parseReference(ref string) (reference, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	path := strings.Trim(u.Host+u.Path, "/")
	r := reference{
		project: u.Query().Get("project"),
		version: u.Query().Get("version"),
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) >= 4 && parts[0] == "projects" && parts[2] == "secrets":
		r.project, r.name = parts[1], parts[3]
		if len(parts) == 6 && parts[4] == "versions" {
			r.version = parts[5]
		}
	case len(parts) == 1 && parts[0] != "":
		r.name = parts[0]
	default:
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	if r.version == "" {
		r.version = "latest"
	}
	return r, nil
}
