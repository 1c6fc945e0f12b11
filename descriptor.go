package dicontainer

import (
	"fmt"
	"reflect"
)

// ── Service keys ──────────────────────────────────────────────────────────────

// ServiceKey identifies a service registration. Keys are plain strings so any
// naming scheme works; KeyFor derives a stable key from a Go type for callers
// that prefer type-based registration.
type ServiceKey string

// KeyFor returns the package-qualified name of T as a ServiceKey, with an
// optional qualifier for registering one type under several keys.
//
//	KeyFor[UserRepository]()          // "myapp.UserRepository"
//	KeyFor[*sql.DB]("replica")        // "database/sql.DB#replica"
//	c.Scoped(KeyFor[UserRepository](), factory, KeyFor[*sql.DB]("replica"))
func KeyFor[T any](qualifier ...string) ServiceKey {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.String()
	if t.PkgPath() != "" && t.Name() != "" {
		name = t.PkgPath() + "." + t.Name()
	}
	if len(qualifier) > 0 && qualifier[0] != "" {
		name += "#" + qualifier[0]
	}
	return ServiceKey(name)
}

// ── Lifetimes ─────────────────────────────────────────────────────────────────

// Lifetime controls how long a resolved instance is reused.
type Lifetime uint8

const (
	// Transient services are constructed on every resolution.
	Transient Lifetime = iota
	// Scoped services are constructed once per Scope.
	Scoped
	// Singleton services are constructed once per Container.
	Singleton
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "Transient"
	case Scoped:
		return "Scoped"
	case Singleton:
		return "Singleton"
	}
	return fmt.Sprintf("Lifetime(%d)", uint8(l))
}

// ── Descriptors ───────────────────────────────────────────────────────────────

// Factory builds one service instance from its already-resolved dependencies,
// passed positionally in the order declared on the Descriptor.
//
//	// .NET: services.AddScoped<OrderService>(sp => new OrderService(sp.GetRequiredService<Repo>()))
//	c.Scoped("orders", func(deps ...any) (any, error) {
//	    return &OrderService{Repo: deps[0].(*Repo)}, nil
//	}, "repo")
type Factory func(deps ...any) (any, error)

// Descriptor is one registration record: the key a service answers to, its
// lifetime, the keys it depends on, and exactly one construction strategy.
//
// Strategies:
//   - Factory: invoked with the resolved Dependencies, positionally.
//   - Instance: a pre-built value returned as-is. Instance registrations are
//     always Singleton and declare no dependencies.
//   - AliasTarget: forwards resolution to another key (interface binding);
//     the result is cached under this descriptor's own key and lifetime.
//
// Dependencies must list exactly the keys the strategy consumes at activation
// time, in positional order. The resolver trusts the declaration and never
// inspects the factory itself.
type Descriptor struct {
	Key          ServiceKey
	Lifetime     Lifetime
	Dependencies []ServiceKey

	Factory     Factory
	Instance    any
	AliasTarget ServiceKey
}

// validate applies the per-descriptor registration rules. Cross-descriptor
// checks (missing targets, cycles) stay deferred to resolution or Build, since
// registrations may arrive in any order.
func (d *Descriptor) validate() error {
	if d.Key == "" {
		return &ConfigurationError{Reason: "descriptor has an empty key"}
	}
	strategies := 0
	if d.Factory != nil {
		strategies++
	}
	if d.Instance != nil {
		strategies++
	}
	if d.AliasTarget != "" {
		strategies++
	}
	switch {
	case strategies == 0:
		return &ConfigurationError{Key: d.Key, Reason: "descriptor declares no construction strategy (factory, instance, or alias)"}
	case strategies > 1:
		return &ConfigurationError{Key: d.Key, Reason: "descriptor declares more than one construction strategy"}
	}
	if d.Instance != nil {
		if len(d.Dependencies) > 0 {
			return &ConfigurationError{Key: d.Key, Reason: "instance registrations take no dependencies"}
		}
		if d.Lifetime != Singleton {
			return &ConfigurationError{Key: d.Key, Reason: "instance registrations must be Singleton"}
		}
	}
	if d.AliasTarget != "" {
		if d.AliasTarget == d.Key {
			return &ConfigurationError{Key: d.Key, Reason: "key is aliased to itself"}
		}
		if len(d.Dependencies) > 0 {
			return &ConfigurationError{Key: d.Key, Reason: "alias registrations take no dependencies"}
		}
	}
	return nil
}

// strategy names the construction strategy for diagnostics.
func (d *Descriptor) strategy() string {
	switch {
	case d.Factory != nil:
		return "factory"
	case d.Instance != nil:
		return "instance"
	case d.AliasTarget != "":
		return "alias"
	}
	return "none"
}

// clone returns a copy the registry can own; callers keep their Descriptor.
func (d *Descriptor) clone() *Descriptor {
	cp := *d
	if d.Dependencies != nil {
		cp.Dependencies = make([]ServiceKey, len(d.Dependencies))
		copy(cp.Dependencies, d.Dependencies)
	}
	return &cp
}
