package dicontainer

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ── Disposal contract ─────────────────────────────────────────────────────────

// Disposable is the teardown contract the container looks for on instances it
// constructs. Values implementing io.Closer are torn down the same way; when
// a value implements both, Dispose wins.
type Disposable interface {
	Dispose() error
}

// disposal is one teardown obligation, tagged with the key the instance was
// resolved under.
type disposal struct {
	key     ServiceKey
	dispose func() error
}

func disposerFor(v any) (func() error, bool) {
	switch d := v.(type) {
	case Disposable:
		return d.Dispose, true
	case io.Closer:
		return d.Close, true
	}
	return nil, false
}

// ── Keyed construction locks ──────────────────────────────────────────────────

// lockSet hands out one mutex per ServiceKey so first constructions of the
// same key serialize without blocking unrelated keys.
type lockSet struct {
	mu    sync.Mutex
	locks map[ServiceKey]*sync.Mutex
}

func newLockSet() *lockSet {
	return &lockSet{locks: make(map[ServiceKey]*sync.Mutex)}
}

func (l *lockSet) of(key ServiceKey) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// ── Scope ─────────────────────────────────────────────────────────────────────

// Scope is a bounded resolution context: one cache of Scoped instances, a
// share of the root's Singleton cache, and the disposal list for everything
// constructed within it. Scopes nest via CreateScope; every scope derived
// from one container shares that container's root scope and therefore its
// singletons.
//
//	// .NET: using var scope = provider.CreateScope();
//	scope := c.CreateScope()
//	defer scope.Dispose()
//	svc, err := scope.Resolve("orders")
//
// A Scope is safe for concurrent use, but the intended shape is one scope per
// unit of work (one HTTP request, one job), resolved from a single goroutine.
type Scope struct {
	id     string
	c      *Container
	parent *Scope
	root   *Scope

	mu          sync.RWMutex
	scoped      map[ServiceKey]any
	singletons  map[ServiceKey]any // root scope only; children reach it via root
	disposables []disposal
	disposed    bool

	locks *lockSet
}

// newRootScope creates the container-lifetime scope that owns the singleton
// cache.
func newRootScope(c *Container) *Scope {
	s := &Scope{
		id:         uuid.NewString(),
		c:          c,
		scoped:     make(map[ServiceKey]any),
		singletons: make(map[ServiceKey]any),
		locks:      newLockSet(),
	}
	s.root = s
	return s
}

// CreateScope returns a child scope with a fresh Scoped cache and disposal
// list. The child shares the ultimate root's singleton cache.
func (s *Scope) CreateScope() *Scope {
	child := &Scope{
		id:     uuid.NewString(),
		c:      s.c,
		parent: s,
		root:   s.root,
		scoped: make(map[ServiceKey]any),
		locks:  newLockSet(),
	}
	s.c.log.Debug("scope created",
		zap.String("scope", child.id),
		zap.String("parent", s.id))
	return child
}

// ID returns the scope's unique identifier, useful for correlating logs and
// per-request diagnostics.
func (s *Scope) ID() string { return s.id }

// alive reports ErrScopeDisposed once Dispose has run.
func (s *Scope) alive() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disposed {
		return ErrScopeDisposed
	}
	return nil
}

// ── Caches ────────────────────────────────────────────────────────────────────

func (s *Scope) cachedScoped(key ServiceKey) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scoped[key]
	return v, ok
}

func (s *Scope) storeScoped(key ServiceKey, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoped[key] = v
}

// cachedSingleton and storeSingleton are only meaningful on the root scope.
func (s *Scope) cachedSingleton(key ServiceKey) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.singletons[key]
	return v, ok
}

func (s *Scope) storeSingleton(key ServiceKey, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.singletons[key] = v
}

// track records v for teardown if it exposes a disposal contract. Entries are
// appended in creation order; Dispose runs them in reverse.
func (s *Scope) track(key ServiceKey, v any) {
	fn, ok := disposerFor(v)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposables = append(s.disposables, disposal{key: key, dispose: fn})
}

// ── Disposal ──────────────────────────────────────────────────────────────────

// Dispose tears down every tracked disposable in reverse creation order and
// clears the Scoped cache. The singleton cache is untouched unless this is the
// root scope (disposed through Container.Dispose), which owns it.
//
// Dispose is idempotent: the second and later calls are no-ops returning nil.
// A disposable that fails does not stop the pass; all failures come back
// aggregated in a single *DisposalError.
func (s *Scope) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	tracked := s.disposables
	s.disposables = nil
	s.scoped = make(map[ServiceKey]any)
	if s.root == s {
		s.singletons = make(map[ServiceKey]any)
	}
	s.mu.Unlock()

	var failures []DisposalFailure
	for i := len(tracked) - 1; i >= 0; i-- {
		if err := tracked[i].dispose(); err != nil {
			failures = append(failures, DisposalFailure{Key: tracked[i].key, Err: err})
		}
	}

	s.c.log.Debug("scope disposed",
		zap.String("scope", s.id),
		zap.Int("disposables", len(tracked)),
		zap.Int("failures", len(failures)))

	if len(failures) > 0 {
		return &DisposalError{Failures: failures}
	}
	return nil
}
