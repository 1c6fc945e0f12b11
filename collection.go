package dicontainer

// ── Collection ────────────────────────────────────────────────────────────────

// Collection is an ordered, mutable set of registrations assembled before (or
// apart from) a container: configuration code appends, tweaks and overrides
// descriptors, then Apply installs them in order. Once applied, the collection
// becomes read-only and further mutation fails with a ConfigurationError.
//
//	// .NET: var services = new ServiceCollection(); ... provider = services.BuildServiceProvider()
//	col := dicontainer.NewCollection()
//	col.Singleton("logger", newLogger)
//	col.Scoped("repo", newRepo, "logger")
//	col.Replace(&dicontainer.Descriptor{Key: "repo", Lifetime: dicontainer.Scoped, Factory: newFakeRepo, Dependencies: []dicontainer.ServiceKey{"logger"}})
//	err := col.Apply(c)
//
// A Collection is not safe for concurrent use; assemble it from one goroutine.
type Collection struct {
	descriptors []*Descriptor
	readonly    bool
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

func (cl *Collection) mutable() error {
	if cl.readonly {
		return &ConfigurationError{Reason: "collection is read-only once applied"}
	}
	return nil
}

// Add validates and appends d. Duplicate keys are allowed in the list; when
// applied, the last descriptor for a key wins, matching Container.Register.
func (cl *Collection) Add(d *Descriptor) error {
	if err := cl.mutable(); err != nil {
		return err
	}
	if err := d.validate(); err != nil {
		return err
	}
	cl.descriptors = append(cl.descriptors, d.clone())
	return nil
}

// Singleton appends a Singleton factory registration.
func (cl *Collection) Singleton(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return cl.Add(&Descriptor{Key: key, Lifetime: Singleton, Dependencies: deps, Factory: factory})
}

// Scoped appends a Scoped factory registration.
func (cl *Collection) Scoped(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return cl.Add(&Descriptor{Key: key, Lifetime: Scoped, Dependencies: deps, Factory: factory})
}

// Transient appends a Transient factory registration.
func (cl *Collection) Transient(key ServiceKey, factory Factory, deps ...ServiceKey) error {
	return cl.Add(&Descriptor{Key: key, Lifetime: Transient, Dependencies: deps, Factory: factory})
}

// Instance appends a pre-built value registration.
func (cl *Collection) Instance(key ServiceKey, value any) error {
	return cl.Add(&Descriptor{Key: key, Lifetime: Singleton, Instance: value})
}

// Alias appends an alias registration forwarding key to target.
func (cl *Collection) Alias(key, target ServiceKey, lifetime Lifetime) error {
	return cl.Add(&Descriptor{Key: key, Lifetime: lifetime, AliasTarget: target})
}

// TryAdd appends d only when no descriptor for d.Key is present; adding an
// already-covered key is a silent no-op. Useful for default registrations the
// application may have overridden.
func (cl *Collection) TryAdd(d *Descriptor) error {
	if err := cl.mutable(); err != nil {
		return err
	}
	if cl.Contains(d.Key) {
		return nil
	}
	return cl.Add(d)
}

// Replace swaps the first descriptor registered for d.Key with d, or appends
// when the key is absent.
func (cl *Collection) Replace(d *Descriptor) error {
	if err := cl.mutable(); err != nil {
		return err
	}
	if err := d.validate(); err != nil {
		return err
	}
	for i, existing := range cl.descriptors {
		if existing.Key == d.Key {
			cl.descriptors[i] = d.clone()
			return nil
		}
	}
	cl.descriptors = append(cl.descriptors, d.clone())
	return nil
}

// RemoveAll deletes every descriptor for key and reports how many were
// removed.
func (cl *Collection) RemoveAll(key ServiceKey) int {
	if cl.readonly {
		return 0
	}
	kept := cl.descriptors[:0]
	removed := 0
	for _, d := range cl.descriptors {
		if d.Key == key {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	cl.descriptors = kept
	return removed
}

// Contains reports whether any descriptor for key is present.
func (cl *Collection) Contains(key ServiceKey) bool {
	for _, d := range cl.descriptors {
		if d.Key == key {
			return true
		}
	}
	return false
}

// Len returns the number of descriptors in the collection.
func (cl *Collection) Len() int {
	return len(cl.descriptors)
}

// Apply registers every descriptor into c, in order, then marks the
// collection read-only. Apply is not transactional: a failing registration
// (for example against an already-built container) stops the pass and leaves
// earlier registrations in place.
func (cl *Collection) Apply(c *Container) error {
	for _, d := range cl.descriptors {
		if err := c.Register(d); err != nil {
			return err
		}
	}
	cl.readonly = true
	return nil
}
