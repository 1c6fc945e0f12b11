package dihttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kreigan/dicontainer"
)

// ScopeHeader is the response header carrying the request scope's ID, for
// correlating a response with the container's scope lifecycle logs.
const ScopeHeader = "X-Scope-Id"

type ctxKey struct{}

// ── Options ───────────────────────────────────────────────────────────────────

type config struct {
	onDisposeError func(r *http.Request, err error)
}

// Option configures the scope middleware.
type Option func(*config)

// WithDisposeErrorHandler installs a callback for scope disposal failures.
// Disposal runs after the response is written, so the error cannot reach the
// client; the default is to drop it.
func WithDisposeErrorHandler(fn func(r *http.Request, err error)) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.onDisposeError = fn
		}
	}
}

// ── Middleware ────────────────────────────────────────────────────────────────

// ScopeMiddleware opens one child scope per request, stores it in the request
// context, and disposes it when the handler returns (panics included). Scoped
// services resolved during a request are therefore shared across that
// request's handlers and torn down at its end.
//
//	r := chi.NewRouter()
//	r.Use(dihttp.ScopeMiddleware(c))
//	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
//	    svc, err := dihttp.Resolve[*OrderService](r, "orders")
//	    ...
//	})
func ScopeMiddleware(c *dicontainer.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := c.CreateScope()
			defer func() {
				if err := scope.Dispose(); err != nil && cfg.onDisposeError != nil {
					cfg.onDisposeError(r, err)
				}
			}()
			w.Header().Set(ScopeHeader, scope.ID())
			ctx := context.WithValue(r.Context(), ctxKey{}, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRouter returns a chi router with RequestID, RealIP and Recoverer
// installed, plus the scope middleware, so every route resolves against a
// per-request scope out of the box.
func NewRouter(c *dicontainer.Container, opts ...Option) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(ScopeMiddleware(c, opts...))
	return r
}

// ── Context access ────────────────────────────────────────────────────────────

// ScopeFrom extracts the request scope placed in ctx by ScopeMiddleware.
func ScopeFrom(ctx context.Context) (*dicontainer.Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*dicontainer.Scope)
	return s, ok
}

// Resolve resolves key from r's request scope.
//
//	repo, err := dihttp.Resolve[*Repository](r, "repo")
func Resolve[T any](r *http.Request, key dicontainer.ServiceKey) (T, error) {
	scope, ok := ScopeFrom(r.Context())
	if !ok {
		var zero T
		return zero, fmt.Errorf("dihttp: no scope in request context; is ScopeMiddleware installed?")
	}
	return dicontainer.Resolve[T](scope, key)
}

// MustResolve is Resolve for handlers that treat a wiring failure as a
// programming error; it panics instead of returning one. Recoverer (installed
// by NewRouter) turns the panic into a 500.
func MustResolve[T any](r *http.Request, key dicontainer.ServiceKey) T {
	v, err := Resolve[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}
