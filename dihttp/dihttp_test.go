package dihttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/kreigan/dicontainer"
	"github.com/kreigan/dicontainer/dihttp"
)

// ── helpers ──────────────────────────────────────────────────────────────────

type session struct{ n int }

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// newSessionContainer registers a Scoped "session" whose value records the
// construction count.
func newSessionContainer(t *testing.T) *dicontainer.Container {
	t.Helper()
	c := dicontainer.New()
	n := 0
	err := c.Scoped("session", func(deps ...any) (any, error) {
		n++
		return &session{n: n}, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

// ── Per-request scoping ───────────────────────────────────────────────────────

func TestScopeMiddleware_FreshScopePerRequest(t *testing.T) {
	c := newSessionContainer(t)
	r := dihttp.NewRouter(c)
	r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
		s := dihttp.MustResolve[*session](req, "session")
		_, _ = w.Write([]byte(strconv.Itoa(s.n)))
	})

	if got := do(t, r, http.MethodGet, "/whoami").Body.String(); got != "1" {
		t.Errorf("first request: got %q want %q", got, "1")
	}
	if got := do(t, r, http.MethodGet, "/whoami").Body.String(); got != "2" {
		t.Errorf("second request: got %q want %q", got, "2")
	}
}

func TestScopeMiddleware_ScopedSharedWithinOneRequest(t *testing.T) {
	c := newSessionContainer(t)
	r := dihttp.NewRouter(c)
	r.Get("/check", func(w http.ResponseWriter, req *http.Request) {
		first := dihttp.MustResolve[*session](req, "session")
		second := dihttp.MustResolve[*session](req, "session")
		if first == second {
			_, _ = w.Write([]byte("same"))
			return
		}
		_, _ = w.Write([]byte("different"))
	})

	if got := do(t, r, http.MethodGet, "/check").Body.String(); got != "same" {
		t.Errorf("got %q want %q", got, "same")
	}
}

func TestScopeMiddleware_SingletonSharedAcrossRequests(t *testing.T) {
	c := dicontainer.New()
	n := 0
	if err := c.Singleton("app", func(deps ...any) (any, error) {
		n++
		return strconv.Itoa(n), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	r := dihttp.NewRouter(c)
	r.Get("/app", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(dihttp.MustResolve[string](req, "app")))
	})

	for i := 0; i < 3; i++ {
		if got := do(t, r, http.MethodGet, "/app").Body.String(); got != "1" {
			t.Fatalf("request %d: got %q want %q (singleton must be built once)", i+1, got, "1")
		}
	}
}

func TestScopeMiddleware_SetsScopeHeader(t *testing.T) {
	c := newSessionContainer(t)
	r := dihttp.NewRouter(c)
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h1 := do(t, r, http.MethodGet, "/ping").Header().Get(dihttp.ScopeHeader)
	h2 := do(t, r, http.MethodGet, "/ping").Header().Get(dihttp.ScopeHeader)
	if h1 == "" || h2 == "" {
		t.Fatalf("scope header missing: %q, %q", h1, h2)
	}
	if h1 == h2 {
		t.Errorf("scope headers should differ per request, both %q", h1)
	}
}

// ── Disposal ──────────────────────────────────────────────────────────────────

type trackedConn struct {
	closed *bool
	err    error
}

func (c *trackedConn) Dispose() error {
	*c.closed = true
	return c.err
}

func TestScopeMiddleware_DisposesScopeAfterResponse(t *testing.T) {
	closed := false
	c := dicontainer.New()
	if err := c.Scoped("conn", func(deps ...any) (any, error) {
		return &trackedConn{closed: &closed}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	r := dihttp.NewRouter(c)
	r.Get("/use", func(w http.ResponseWriter, req *http.Request) {
		_ = dihttp.MustResolve[*trackedConn](req, "conn")
		if closed {
			t.Error("scope disposed before the handler returned")
		}
	})

	do(t, r, http.MethodGet, "/use")
	if !closed {
		t.Error("scope should be disposed once the response is written")
	}
}

func TestScopeMiddleware_DisposalRunsOnPanic(t *testing.T) {
	closed := false
	c := dicontainer.New()
	if err := c.Scoped("conn", func(deps ...any) (any, error) {
		return &trackedConn{closed: &closed}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	r := dihttp.NewRouter(c)
	r.Get("/boom", func(w http.ResponseWriter, req *http.Request) {
		_ = dihttp.MustResolve[*trackedConn](req, "conn")
		panic("handler exploded")
	})

	rr := do(t, r, http.MethodGet, "/boom")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d want 500", rr.Code)
	}
	if !closed {
		t.Error("a panicking handler should still get its scope disposed")
	}
}

func TestScopeMiddleware_DisposeErrorHandlerCalled(t *testing.T) {
	closeErr := errors.New("close failed")
	closed := false
	c := dicontainer.New()
	if err := c.Scoped("conn", func(deps ...any) (any, error) {
		return &trackedConn{closed: &closed, err: closeErr}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	var seen error
	r := dihttp.NewRouter(c, dihttp.WithDisposeErrorHandler(func(req *http.Request, err error) {
		seen = err
	}))
	r.Get("/use", func(w http.ResponseWriter, req *http.Request) {
		_ = dihttp.MustResolve[*trackedConn](req, "conn")
	})

	do(t, r, http.MethodGet, "/use")
	if seen == nil {
		t.Fatal("dispose error handler should have been called")
	}
	if !errors.Is(seen, closeErr) {
		t.Errorf("handler should receive the disposal failure, got %v", seen)
	}
}

// ── Context access ────────────────────────────────────────────────────────────

func TestScopeFrom_AbsentWithoutMiddleware(t *testing.T) {
	if _, ok := dihttp.ScopeFrom(context.Background()); ok {
		t.Error("ScopeFrom should report false on a bare context")
	}

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	if _, err := dihttp.Resolve[string](req, "k"); err == nil {
		t.Error("Resolve without the middleware should fail")
	}
}

func TestMustResolve_MissingKeyBecomes500(t *testing.T) {
	c := dicontainer.New()
	r := dihttp.NewRouter(c)
	r.Get("/broken", func(w http.ResponseWriter, req *http.Request) {
		_ = dihttp.MustResolve[*session](req, "never-registered")
	})

	rr := do(t, r, http.MethodGet, "/broken")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d want 500 (Recoverer turns the panic into a response)", rr.Code)
	}
}
