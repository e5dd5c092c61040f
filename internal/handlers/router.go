package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardify/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	metrics     http.Handler

	public []RouteRegistrar
	auth   []RouteRegistrar
	me     []RouteRegistrar
	root   []RouteRegistrar

	meMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with shared middleware and expected route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}
	for _, reg := range cfg.root {
		if reg != nil {
			reg(r)
		}
	}

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrars []RouteRegistrar, name string, groupMW []func(http.Handler) http.Handler) {
			api.Route(path, func(group chi.Router) {
				for _, mw := range groupMW {
					if mw != nil {
						group.Use(mw)
					}
				}
				if len(registrars) == 0 {
					registerNotImplemented(group, name)
					return
				}
				for _, reg := range registrars {
					if reg != nil {
						reg(group)
					}
				}
			})
		}

		if len(cfg.public) > 0 {
			for _, reg := range cfg.public {
				if reg != nil {
					reg(api)
				}
			}
		} else {
			registerNotImplementedRoute(api, "/templates", "public")
		}
		mount("/auth", cfg.auth, "auth", nil)
		mount("/me", cfg.me, "me", cfg.meMiddlewares)
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.metrics = h
	}
}

// WithPublicRoutes registers unauthenticated endpoints directly under the API prefix.
func WithPublicRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.public = append(cfg.public, reg...)
	}
}

// WithAuthRoutes registers the /auth group.
func WithAuthRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.auth = append(cfg.auth, reg...)
	}
}

// WithMeRoutes registers the user scoped /me group.
func WithMeRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.me = append(cfg.me, reg...)
	}
}

// WithMeMiddlewares configures middlewares applied to the /me group.
func WithMeMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.meMiddlewares = append(cfg.meMiddlewares, mw...)
	}
}

// WithRootRoutes registers routes outside the API prefix, such as the gallery page.
func WithRootRoutes(reg ...RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.root = append(cfg.root, reg...)
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}

func registerNotImplementedRoute(r chi.Router, path string, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
	r.HandleFunc(path, handler)
}
