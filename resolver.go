package dicontainer

import (
	"errors"
	"slices"

	"go.uber.org/zap"
)

// ── Resolution context ────────────────────────────────────────────────────────

// resolution is the state of one top-level Resolve call: the scope instances
// are cached into, and the ordered path of keys currently being constructed.
// It lives for exactly one call tree and is never shared between goroutines.
type resolution struct {
	scope      *Scope
	inProgress []ServiceKey
}

// requester is the key whose dependency list referenced the current lookup,
// empty for a top-level request.
func (rc *resolution) requester() ServiceKey {
	if len(rc.inProgress) == 0 {
		return ""
	}
	return rc.inProgress[len(rc.inProgress)-1]
}

// ── Entry points ──────────────────────────────────────────────────────────────

// Resolve materializes the service registered under key, constructing its
// dependency graph bottom-up and applying this scope's lifetime caches.
//
//	// .NET: scope.ServiceProvider.GetRequiredService<OrderService>()
//	svc, err := scope.Resolve("orders")
func (s *Scope) Resolve(key ServiceKey) (any, error) {
	if err := s.c.ensureBuilt(); err != nil {
		return nil, err
	}
	if err := s.alive(); err != nil {
		return nil, err
	}
	rc := &resolution{scope: s}
	return s.c.resolveKey(rc, key)
}

// TryResolve is Resolve for optional services: an unregistered key reports
// ok=false with a nil error, while genuine failures (cycles, failing
// factories, missing transitive dependencies) still surface as errors.
//
//	// .NET: provider.GetService<Cache>() — nil when unregistered
//	cache, ok, err := scope.TryResolve("cache")
func (s *Scope) TryResolve(key ServiceKey) (any, bool, error) {
	v, err := s.Resolve(key)
	if err != nil {
		var missing *MissingDependencyError
		if errors.As(err, &missing) && missing.Key == key && missing.RequestedBy == "" {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// ── Graph walk ────────────────────────────────────────────────────────────────

// resolveKey is the recursive resolver. Per key it: detects cycles against the
// in-progress path, short-circuits on the lifetime caches, looks up the
// descriptor, resolves declared dependencies in order, activates, caches per
// lifetime, and tracks disposables on the owning scope.
func (c *Container) resolveKey(rc *resolution, key ServiceKey) (any, error) {
	if i := slices.Index(rc.inProgress, key); i >= 0 {
		chain := append(slices.Clone(rc.inProgress[i:]), key)
		return nil, &CircularDependencyError{Chain: chain}
	}

	scope := rc.scope
	if v, ok := scope.root.cachedSingleton(key); ok {
		return v, nil
	}
	if v, ok := scope.cachedScoped(key); ok {
		return v, nil
	}

	d, ok := c.registry.lookup(key)
	if !ok {
		return nil, &MissingDependencyError{Key: key, RequestedBy: rc.requester()}
	}

	// First constructions of a cached lifetime serialize on a per-key mutex,
	// so concurrent resolutions observe at most one construction per key. The
	// cache is re-checked under the lock: a racing goroutine may have won.
	switch d.Lifetime {
	case Singleton:
		mu := scope.root.locks.of(key)
		mu.Lock()
		defer mu.Unlock()
		if v, ok := scope.root.cachedSingleton(key); ok {
			return v, nil
		}
		if err := scope.root.alive(); err != nil {
			return nil, err
		}
	case Scoped:
		mu := scope.locks.of(key)
		mu.Lock()
		defer mu.Unlock()
		if v, ok := scope.cachedScoped(key); ok {
			return v, nil
		}
	}

	// The key occupies a slot on the in-progress path for as long as its
	// subtree is being built; release is unconditional so a failed resolution
	// leaves the container usable.
	rc.inProgress = append(rc.inProgress, key)
	defer func() { rc.inProgress = rc.inProgress[:len(rc.inProgress)-1] }()

	var deps []any
	if n := len(d.Dependencies); n > 0 {
		deps = make([]any, 0, n)
		for _, depKey := range d.Dependencies {
			v, err := c.resolveKey(rc, depKey)
			if err != nil {
				return nil, err
			}
			deps = append(deps, v)
		}
	}

	instance, err := c.activate(rc, d, deps)
	if err != nil {
		return nil, err
	}

	switch d.Lifetime {
	case Singleton:
		scope.root.storeSingleton(key, instance)
	case Scoped:
		scope.storeScoped(key, instance)
	}

	// Only factory-built instances are owned by the container: provided
	// instances stay with their registrant, and an alias frame returns a value
	// the forwarded frame already tracked.
	if d.Factory != nil {
		owner := scope
		if d.Lifetime == Singleton {
			owner = scope.root
		}
		owner.track(key, instance)
	}

	c.log.Debug("service constructed",
		zap.String("key", string(key)),
		zap.Stringer("lifetime", d.Lifetime),
		zap.String("strategy", d.strategy()),
		zap.String("scope", scope.id))

	return instance, nil
}
