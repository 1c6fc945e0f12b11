package dicontainer

import "sync"

// ── Provider interfaces ───────────────────────────────────────────────────────

// Provider groups related registrations into one installable unit.
//
// Register runs before the container is built; it must only register services,
// never resolve them. Resolution belongs in Boot (see BootProvider), which
// runs after every provider has registered.
//
//	type StorageProvider struct{}
//
//	func (p *StorageProvider) Register(c *dicontainer.Container) error {
//	    return c.Singleton("store", func(deps ...any) (any, error) {
//	        return NewStore(), nil
//	    })
//	}
type Provider interface {
	Register(c *Container) error
}

// BootProvider is a Provider with a post-build hook. Boot runs after the
// container is built, so resolving other services there is safe.
type BootProvider interface {
	Provider

	// Boot is called once all providers have registered and the container is
	// built. Safe to resolve and use any service here.
	Boot(c *Container) error
}

// DeferredProvider is a Provider loaded lazily: its Register runs during
// Build, and only when one of its Provides keys is referenced by another
// registration (a dependency or alias target) that nothing else supplies.
// Keys resolved directly by application code want an eager Provider instead,
// since the registry is frozen once built.
type DeferredProvider interface {
	Provider

	// Provides lists the keys this provider registers.
	Provides() []ServiceKey
}

// addDeferred queues p for the build-time fixpoint pass.
func (c *Container) addDeferred(p DeferredProvider) {
	c.deferredMu.Lock()
	defer c.deferredMu.Unlock()
	c.deferred = append(c.deferred, p)
}

// deferredDidRun reports whether the build pass actually registered p.
func (c *Container) deferredDidRun(p DeferredProvider) bool {
	c.deferredMu.Lock()
	defer c.deferredMu.Unlock()
	return c.ranDeferred[p]
}

// markDeferredRan records that the build pass registered p.
func (c *Container) markDeferredRan(p DeferredProvider) {
	c.deferredMu.Lock()
	defer c.deferredMu.Unlock()
	if c.ranDeferred == nil {
		c.ranDeferred = make(map[DeferredProvider]bool)
	}
	c.ranDeferred[p] = true
}

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of Providers, including
// deferred ones. Typical shape:
//
//	reg := dicontainer.NewProviderRegistry(c)
//	if err := reg.Register(&StorageProvider{}, &HTTPProvider{}); err != nil { ... }
//	if err := reg.Boot(); err != nil { ... }   // builds the container, runs Boot hooks
type ProviderRegistry struct {
	c *Container

	mu         sync.Mutex
	eager      []Provider
	deferred   []DeferredProvider
	booted     bool
	registered map[Provider]bool
}

// NewProviderRegistry creates a registry bound to c.
func NewProviderRegistry(c *Container) *ProviderRegistry {
	return &ProviderRegistry{
		c:          c,
		registered: make(map[Provider]bool),
	}
}

// Register adds providers. Eager providers register immediately; deferred
// providers are queued for the build pass. Registering the same provider
// instance twice is a no-op.
func (r *ProviderRegistry) Register(providers ...Provider) error {
	for _, p := range providers {
		if err := r.registerOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) registerOne(p Provider) error {
	r.mu.Lock()
	if r.registered[p] {
		r.mu.Unlock()
		return nil
	}
	r.registered[p] = true
	booted := r.booted

	if dp, ok := p.(DeferredProvider); ok {
		r.deferred = append(r.deferred, dp)
		r.mu.Unlock()
		r.c.addDeferred(dp)
		return nil
	}

	r.eager = append(r.eager, p)
	r.mu.Unlock()

	if err := p.Register(r.c); err != nil {
		return err
	}
	// Providers arriving after Boot get their Boot hook right away.
	if booted {
		if bp, ok := p.(BootProvider); ok {
			return bp.Boot(r.c)
		}
	}
	return nil
}

// Boot builds the container (running the deferred pass and freezing the
// registry), then calls Boot on every provider that has one: eager providers
// in registration order, then deferred providers the build actually loaded.
// Boot is idempotent.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := make([]Provider, len(r.eager))
	copy(eager, r.eager)
	deferred := make([]DeferredProvider, len(r.deferred))
	copy(deferred, r.deferred)
	r.mu.Unlock()

	if err := r.c.Build(); err != nil {
		return err
	}
	for _, p := range eager {
		if bp, ok := p.(BootProvider); ok {
			if err := bp.Boot(r.c); err != nil {
				return err
			}
		}
	}
	for _, dp := range deferred {
		if !r.c.deferredDidRun(dp) {
			continue
		}
		if bp, ok := dp.(BootProvider); ok {
			if err := bp.Boot(r.c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Booted reports whether Boot has run.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns the eager providers in registration order.
func (r *ProviderRegistry) Providers() []Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Provider, len(r.eager))
	copy(out, r.eager)
	return out
}
