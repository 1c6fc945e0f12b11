package dicontainer

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// ContainerKey is the key the container registers itself under, so factories
// with a genuine need for the container (rare; prefer declared dependencies)
// can receive it like any other dependency.
const ContainerKey ServiceKey = "dicontainer.Container"

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the DI container façade: it owns the descriptor registry and
// the root scope, and exposes registration, building, scoping, resolution and
// teardown. The model follows the Microsoft.Extensions.DependencyInjection
// shape: keyed registrations with Transient, Scoped and Singleton lifetimes,
// an immutable registry once built, and scope-owned disposal.
//
// It supports:
//   - Singleton / Scoped / Transient factory registrations
//   - Instance (pre-built values) and Alias (interface → implementation) bindings
//   - CreateScope for per-unit-of-work instance sharing and disposal
//   - Resolve / TryResolve / generic Resolve[T]
//   - Build-time graph validation (WithValidation)
//   - Deferred providers, registered only when their keys are referenced
type Container struct {
	registry *registry
	root     *Scope
	log      *zap.Logger
	validate bool

	deferredMu  sync.Mutex
	deferred    []DeferredProvider
	ranDeferred map[DeferredProvider]bool

	buildOnce sync.Once
	buildErr  error
}

// Option configures a Container at construction time.
type Option func(*Container)

// WithLogger routes the container's diagnostic events (registrations, build,
// constructions, scope lifecycle) to l at debug level. Resolution never
// depends on logging; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// WithValidation makes Build verify the whole registration graph eagerly:
// every declared dependency and alias target must be registered, and the
// graph must be acyclic. Failures surface from Build (or the first Resolve)
// as MissingDependencyError / CircularDependencyError.
func WithValidation() Option {
	return func(c *Container) { c.validate = true }
}

// New creates an empty container. Register services, then Build (explicitly,
// or implicitly on first use) to freeze the registry.
func New(opts ...Option) *Container {
	c := &Container{
		registry: newRegistry(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root = newRootScope(c)
	// The container answers for itself, like any other pre-built value.
	_ = c.registry.register(&Descriptor{Key: ContainerKey, Lifetime: Singleton, Instance: c})
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Register records d in the registry, replacing any earlier registration for
// the same key. Registration is only valid before the container is built;
// afterwards it fails with a ConfigurationError.
func (c *Container) Register(d *Descriptor) error {
	if err := c.registry.register(d); err != nil {
		return err
	}
	c.log.Debug("service registered",
		zap.String("key", string(d.Key)),
		zap.Stringer("lifetime", d.Lifetime),
		zap.String("strategy", d.strategy()),
		zap.Int("dependencies", len(d.Dependencies)))
	return nil
}

// Singleton registers a factory whose result is constructed once per
// container and shared by every scope.
//
//	// .NET: services.AddSingleton<Logger>(_ => NewLogger())
//	c.Singleton("logger", func(deps ...any) (any, error) { return NewLogger(), nil })
func (c *Container) Singleton(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return c.Register(&Descriptor{Key: key, Lifetime: Singleton, Dependencies: deps, Factory: factory})
}

// Scoped registers a factory constructed once per Scope.
//
//	// .NET: services.AddScoped<Repository>(...)
//	c.Scoped("repo", newRepo, "logger")
func (c *Container) Scoped(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return c.Register(&Descriptor{Key: key, Lifetime: Scoped, Dependencies: deps, Factory: factory})
}

// Transient registers a factory invoked on every resolution; results are
// never cached.
//
//	// .NET: services.AddTransient<Service>(...)
//	c.Transient("service", newService, "repo")
func (c *Container) Transient(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return c.Register(&Descriptor{Key: key, Lifetime: Transient, Dependencies: deps, Factory: factory})
}

// Instance registers a pre-built value. The value is returned as-is on every
// resolution; its teardown stays with whoever built it.
//
//	// .NET: services.AddSingleton<Config>(cfg)
//	c.Instance("config", cfg)
func (c *Container) Instance(key ServiceKey, value any) error {
	return c.Register(&Descriptor{Key: key, Lifetime: Singleton, Instance: value})
}

// Alias forwards resolutions of key to target and caches the result under key
// per the given lifetime. Used for interface → implementation bindings where
// the implementation is registered under its own key.
//
//	c.Alias("UserRepository", "PostgresUserRepository", dicontainer.Singleton)
func (c *Container) Alias(key, target ServiceKey, lifetime Lifetime) error {
	return c.Register(&Descriptor{Key: key, Lifetime: lifetime, AliasTarget: target})
}

// Contains reports whether key has a registration.
func (c *Container) Contains(key ServiceKey) bool {
	return c.registry.contains(key)
}

// Keys returns every registered key in sorted order, for debugging and
// introspection.
func (c *Container) Keys() []ServiceKey {
	return c.registry.keys()
}

// Built reports whether the registry is frozen, either by an explicit Build
// or implicitly by the first resolution.
func (c *Container) Built() bool {
	return c.registry.isFrozen()
}

// ── Build ─────────────────────────────────────────────────────────────────────

// Build runs deferred providers, freezes the registry, and, when
// WithValidation is set, verifies the whole dependency graph. Build is
// idempotent: later calls (and the implicit build on first use) return the
// same result.
func (c *Container) Build() error {
	return c.ensureBuilt()
}

// ensureBuilt performs the one-time build; every resolution path funnels
// through it so the registry is frozen before the first resolve.
func (c *Container) ensureBuilt() error {
	c.buildOnce.Do(c.build)
	return c.buildErr
}

func (c *Container) build() {
	err := c.runDeferred()
	c.registry.freeze()
	if err == nil && c.validate {
		err = c.validateGraph()
	}
	c.buildErr = err
	c.log.Debug("container built",
		zap.Int("services", c.registry.size()),
		zap.Bool("validated", c.validate),
		zap.Error(err))
}

// runDeferred registers deferred providers whose provided keys are referenced
// by the graph, repeating until no provider makes progress (a deferred
// provider may itself reference keys another deferred provider supplies, or
// even register further deferred providers).
func (c *Container) runDeferred() error {
	for {
		progress := false
		referenced := c.referencedKeys()
		c.deferredMu.Lock()
		pending := slices.Clone(c.deferred)
		c.deferredMu.Unlock()
		for _, p := range pending {
			if c.deferredDidRun(p) {
				continue
			}
			if !c.wantsAny(referenced, p.Provides()) {
				continue
			}
			c.markDeferredRan(p)
			progress = true
			if err := p.Register(c); err != nil {
				return fmt.Errorf("dicontainer: deferred provider %T: %w", p, err)
			}
		}
		if !progress {
			return nil
		}
	}
}

// referencedKeys collects every key the registered descriptors point at
// (dependencies and alias targets).
func (c *Container) referencedKeys() map[ServiceKey]bool {
	refs := make(map[ServiceKey]bool)
	for _, key := range c.registry.keys() {
		d, ok := c.registry.lookup(key)
		if !ok {
			continue
		}
		for _, dep := range d.Dependencies {
			refs[dep] = true
		}
		if d.AliasTarget != "" {
			refs[d.AliasTarget] = true
		}
	}
	return refs
}

// wantsAny reports whether any of keys is referenced but not yet registered.
func (c *Container) wantsAny(referenced map[ServiceKey]bool, keys []ServiceKey) bool {
	for _, k := range keys {
		if referenced[k] && !c.registry.contains(k) {
			return true
		}
	}
	return false
}

// validateGraph walks every registration depth-first, reusing the resolution
// error types so eager and lazy detection report identically.
func (c *Container) validateGraph() error {
	verified := make(map[ServiceKey]bool)

	var walk func(path []ServiceKey, key, requestedBy ServiceKey) error
	walk = func(path []ServiceKey, key, requestedBy ServiceKey) error {
		if i := slices.Index(path, key); i >= 0 {
			chain := append(slices.Clone(path[i:]), key)
			return &CircularDependencyError{Chain: chain}
		}
		if verified[key] {
			return nil
		}
		d, ok := c.registry.lookup(key)
		if !ok {
			return &MissingDependencyError{Key: key, RequestedBy: requestedBy}
		}
		path = append(path, key)
		for _, dep := range d.Dependencies {
			if err := walk(path, dep, key); err != nil {
				return err
			}
		}
		if d.AliasTarget != "" {
			if err := walk(path, d.AliasTarget, key); err != nil {
				return err
			}
		}
		verified[key] = true
		return nil
	}

	for _, key := range c.registry.keys() {
		if err := walk(nil, key, ""); err != nil {
			return err
		}
	}
	return nil
}

// ── Scoping & resolution ──────────────────────────────────────────────────────

// CreateScope builds the container if needed and returns a child of the root
// scope. Callers own the scope's lifecycle and should Dispose it when the
// unit of work ends.
//
//	// .NET: using var scope = provider.CreateScope();
//	scope := c.CreateScope()
//	defer scope.Dispose()
func (c *Container) CreateScope() *Scope {
	// A build failure is not swallowed: every Resolve on the scope reports it.
	_ = c.ensureBuilt()
	return c.root.CreateScope()
}

// Resolve materializes key from the root scope. Scoped services resolved here
// are cached on the root scope itself; per-request sharing wants CreateScope.
func (c *Container) Resolve(key ServiceKey) (any, error) {
	return c.root.Resolve(key)
}

// TryResolve is Resolve for optional services; see Scope.TryResolve.
func (c *Container) TryResolve(key ServiceKey) (any, bool, error) {
	return c.root.TryResolve(key)
}

// Dispose tears down the root scope: every tracked singleton (and anything
// resolved directly from the root) is disposed in reverse creation order.
// Idempotent, like Scope.Dispose.
func (c *Container) Dispose() error {
	return c.root.Dispose()
}

// ── Generic helpers ───────────────────────────────────────────────────────────

// Resolver is anything that can resolve service keys; *Container and *Scope
// both qualify.
type Resolver interface {
	Resolve(key ServiceKey) (any, error)
	TryResolve(key ServiceKey) (any, bool, error)
}

// Resolve is a generic helper that resolves key and type-asserts the result.
//
//	// Instead of: repo := v.(*UserRepository) after scope.Resolve("repo")
//	// Write:      repo, err := dicontainer.Resolve[*UserRepository](scope, "repo")
func Resolve[T any](r Resolver, key ServiceKey) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("dicontainer: [%s] resolved to %T, not %T", key, v, zero)
	}
	return typed, nil
}

// MustResolve is Resolve for wiring paths where a failure is a programming
// error; it panics instead of returning one.
func MustResolve[T any](r Resolver, key ServiceKey) T {
	v, err := Resolve[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}
