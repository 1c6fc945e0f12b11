package dicontainer

// ── Activation ────────────────────────────────────────────────────────────────

// activate produces one instance from a descriptor and its resolved
// dependencies. The construction strategy is a closed variant, so the switch
// below is exhaustive; descriptor validation guarantees exactly one arm.
func (c *Container) activate(rc *resolution, d *Descriptor, deps []any) (any, error) {
	switch {
	case d.Factory != nil:
		instance, err := d.Factory(deps...)
		if err != nil {
			return nil, &ActivationError{Key: d.Key, Err: err}
		}
		return instance, nil

	case d.Instance != nil:
		// Guarded at registration; surfaced here again for descriptors that
		// bypassed validation.
		if len(deps) > 0 {
			return nil, &ConfigurationError{Key: d.Key, Reason: "instance registrations take no dependencies"}
		}
		return d.Instance, nil

	case d.AliasTarget != "":
		// Alias forwarding resolves the target inside the same resolution
		// context, so alias chains participate in cycle detection and the
		// forwarded value lands in the caches under the alias's own lifetime.
		return c.resolveKey(rc, d.AliasTarget)
	}

	return nil, &ConfigurationError{Key: d.Key, Reason: "descriptor declares no construction strategy (factory, instance, or alias)"}
}
