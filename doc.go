// Package dicontainer provides a lifetime-aware dependency-injection
// container for Go.
//
// # Overview
//
// The container maps ServiceKeys to registrations and materializes whole
// dependency graphs on demand: a Resolve walks the graph lazily, constructs
// instances bottom-up, reuses them per their declared lifetime, and tears
// them down when their owning scope ends. Missing registrations and circular
// dependencies are reported with the exact offending chain.
//
// The design follows the Microsoft.Extensions.DependencyInjection model
// (Transient/Scoped/Singleton lifetimes, an immutable registry once built,
// scope-owned disposal). Because Go has no runtime constructor reflection,
// auto-wiring is replaced by factories with explicitly declared dependency
// keys, supplied positionally.
//
// # Container Lifecycle
//
//  1. Create: c := dicontainer.New()
//  2. Register: c.Singleton(...), c.Scoped(...), providers, or a Collection
//  3. Build: c.Build() — freezes the registry (implicit on first use)
//  4. Resolve: per unit of work, scope := c.CreateScope(); defer scope.Dispose()
//  5. Teardown: c.Dispose() — disposes container-owned singletons
//
// # Registration
//
//	// Singleton — constructed once per container
//	// .NET: services.AddSingleton<Logger>(...)
//	c.Singleton("logger", func(deps ...any) (any, error) { return NewLogger(), nil })
//
//	// Scoped — constructed once per Scope, depends on "logger"
//	// .NET: services.AddScoped<Repository>(...)
//	c.Scoped("repo", func(deps ...any) (any, error) {
//	    return NewRepository(deps[0].(*Logger)), nil
//	}, "logger")
//
//	// Transient — constructed on every resolution
//	c.Transient("service", newService, "repo")
//
//	// Pre-built value (teardown stays with the caller)
//	c.Instance("config", cfg)
//
//	// Interface → implementation binding
//	c.Alias("UserRepository", "PostgresUserRepository", dicontainer.Singleton)
//
// Dependencies are declared as ordered keys and handed to the factory
// positionally; the container never inspects factory signatures. KeyFor
// derives keys from Go types for callers that prefer typed registration:
//
//	c.Scoped(dicontainer.KeyFor[*Repository](), newRepo, dicontainer.KeyFor[*Logger]())
//
// # Resolving
//
//	// Untyped
//	v, err := c.Resolve("repo")
//
//	// Generic (preferred — no type assertion required)
//	repo, err := dicontainer.Resolve[*Repository](scope, "repo")
//
//	// Optional services: ok=false instead of an error when unregistered
//	cache, ok, err := c.TryResolve("cache")
//
// # Scopes & Disposal
//
// A Scope bounds one unit of work (one HTTP request, one job). Scoped
// services are shared within a scope and distinct across scopes; singletons
// are shared by every scope of the container.
//
//	scope := c.CreateScope()
//	defer scope.Dispose()
//	svc, err := dicontainer.Resolve[*OrderService](scope, "orders")
//
// Dispose runs in reverse creation order, so dependents are torn down before
// their dependencies. Instances the container constructed are tracked when
// they implement Disposable (or io.Closer); every transient so tracked is
// held until its scope ends, so resolve disposable transients from
// short-lived scopes, not the root. Disposal failures do not stop the pass;
// they come back aggregated in one *DisposalError.
//
// # Errors
//
// Failures are typed and matched with errors.As: ConfigurationError (invalid
// or post-build registration), MissingDependencyError (unregistered key, with
// the requester), CircularDependencyError (the full cycle chain),
// ActivationError (a factory failed; wraps the cause), DisposalError
// (aggregated teardown failures). WithValidation moves missing-key and cycle
// detection to Build:
//
//	c := dicontainer.New(dicontainer.WithValidation(), dicontainer.WithLogger(log))
//	if err := c.Build(); err != nil { ... }
//
// # Service Providers
//
//	type StorageProvider struct{}
//
//	func (p *StorageProvider) Register(c *dicontainer.Container) error {
//	    return c.Singleton("store", newStore)
//	}
//
//	func (p *StorageProvider) Boot(c *dicontainer.Container) error {
//	    _, err := c.Resolve("store") // safe: container is built
//	    return err
//	}
//
//	reg := dicontainer.NewProviderRegistry(c)
//	reg.Register(&StorageProvider{})
//	reg.Boot()
//
// Deferred providers implement Provides() []ServiceKey and register during
// Build, only when another registration references one of their keys.
//
// # HTTP Integration
//
// Package dihttp opens one child scope per request and carries it in the
// request context; see dihttp.ScopeMiddleware and dihttp.NewRouter.
package dicontainer
