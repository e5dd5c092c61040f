package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/cardify/api/internal/platform/httpx"
)

var (
	// ErrJWKSKeyNotFound is returned when the kid is absent after a refresh.
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	// ErrJWKSFetchFailed wraps transport or decoding failures.
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

const defaultJWKSValidity = 15 * time.Minute

// JWKSCache fetches and caches signing keys, honouring Cache-Control max-age.
type JWKSCache struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu     sync.RWMutex
	keys   map[string]jose.JSONWebKey
	expiry time.Time

	refreshMu sync.Mutex
}

// JWKSOption customises JWKSCache.
type JWKSOption func(*JWKSCache)

// WithJWKSHTTPClient overrides the fetch client.
func WithJWKSHTTPClient(c *http.Client) JWKSOption {
	return func(j *JWKSCache) {
		if c != nil {
			j.client = c
		}
	}
}

// WithJWKSClock overrides time.Now.
func WithJWKSClock(now func() time.Time) JWKSOption {
	return func(j *JWKSCache) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJWKSCache builds a cache for url.
func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	c := &JWKSCache{url: url, client: &http.Client{Timeout: 10 * time.Second}, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the public key for kid, refreshing when stale or unknown.
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.RLock()
	jwk, ok := c.keys[kid]
	fresh := c.now().Before(c.expiry)
	c.mu.RUnlock()
	if ok && fresh {
		return jwk.Key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	jwk, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
	}
	return jwk.Key, nil
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrJWKSFetchFailed, resp.StatusCode)
	}
	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}
	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.KeyID != "" && k.Valid() {
			keys[k.KeyID] = k
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty key set", ErrJWKSFetchFailed)
	}

	validity := maxAge(resp.Header.Get("Cache-Control"))
	if validity <= 0 {
		validity = defaultJWKSValidity
	}
	c.mu.Lock()
	c.keys = keys
	c.expiry = c.now().Add(validity)
	c.mu.Unlock()
	return nil
}

func maxAge(header string) time.Duration {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return time.Duration(n) * time.Second
			}
		}
	}
	return 0
}

// ServiceIdentity is the caller of a push endpoint, typically Pub/Sub.
type ServiceIdentity struct {
	Subject string
	Email   string
	Issuer  string
}

type serviceIdentityKey struct{}

// ServiceIdentityFromContext returns the identity set by RequireOIDC.
func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	id, ok := ctx.Value(serviceIdentityKey{}).(*ServiceIdentity)
	return id, ok && id != nil
}

// OIDCValidator checks Google-signed OIDC tokens on push requests.
type OIDCValidator struct {
	cache  *JWKSCache
	logger *zap.Logger
}

// NewOIDCValidator builds a validator over cache.
func NewOIDCValidator(cache *JWKSCache, logger *zap.Logger) *OIDCValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OIDCValidator{cache: cache, logger: logger}
}

// RequireOIDC accepts RS256 tokens with a matching audience and, when
// issuers is non-empty, a listed issuer.
func (v *OIDCValidator) RequireOIDC(audience string, issuers []string) func(http.Handler) http.Handler {
	audience = strings.TrimSpace(audience)
	allowed := make(map[string]bool, len(issuers))
	for _, iss := range issuers {
		allowed[strings.TrimSpace(iss)] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if audience == "" || v == nil || v.cache == nil {
				httpx.WriteError(ctx, w, httpx.NewError("verification_unavailable", "oidc verification not configured", http.StatusServiceUnavailable))
				return
			}
			raw, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "oidc token missing", http.StatusUnauthorized))
				return
			}

			claims := jwt.MapClaims{}
			parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
			_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				kid, _ := t.Header["kid"].(string)
				if kid == "" {
					return nil, errors.New("auth: token missing kid header")
				}
				return v.cache.Key(ctx, kid)
			})
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, ErrJWKSFetchFailed) {
					status = http.StatusServiceUnavailable
				}
				v.logger.Warn("oidc verification failed", zap.Error(err))
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "oidc token verification failed", status))
				return
			}

			issuer, _ := claims["iss"].(string)
			if len(allowed) > 0 && !allowed[issuer] {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "oidc issuer mismatch", http.StatusUnauthorized))
				return
			}
			if !claims.VerifyAudience(audience, true) {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "oidc audience mismatch", http.StatusUnauthorized))
				return
			}

			id := &ServiceIdentity{Issuer: issuer}
			id.Subject, _ = claims["sub"].(string)
			id.Email, _ = claims["email"].(string)
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, serviceIdentityKey{}, id)))
		})
	}
}
