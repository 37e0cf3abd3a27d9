package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	// When PhotoController needs a Filesystem, give it the "s3" service.
//	resolver.When(container.KeyOf[PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give("s3")
type ContextualBuilder struct {
	resolver *ConstructorResolver
	concrete string
	needs    string
}

type contextualBinding struct {
	id      string
	value   any
	isValue bool
}

// When starts a contextual binding chain for the catalogued type concrete.
func (r *ConstructorResolver) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{resolver: r, concrete: concrete}
}

// Needs names the parameter being overridden: either its type key or, for
// constructors added WithParamNames, its parameter name.
func (b *ContextualBuilder) Needs(key string) *ContextualBuilder {
	b.needs = key
	return b
}

// Give resolves the parameter from the container under id instead of its
// type key.
func (b *ContextualBuilder) Give(id string) {
	b.resolver.bind(b.concrete, b.needs, contextualBinding{id: id})
}

// GiveValue is a shorthand for Give when the value is a simple scalar or
// pre-built instance.
//
//	resolver.When(container.KeyOf[PhotoController]()).Needs("storagePath").GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) {
	b.resolver.bind(b.concrete, b.needs, contextualBinding{value: value, isValue: true})
}

func (r *ConstructorResolver) bind(concrete, needs string, cb contextualBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contextual[concrete]; !ok {
		r.contextual[concrete] = make(map[string]contextualBinding)
	}
	r.contextual[concrete][needs] = cb
}

// contextualFor returns the binding for p inside owner. A binding on the
// parameter name takes precedence over one on its type key.
func (r *ConstructorResolver) contextualFor(owner string, p Parameter) (contextualBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.contextual[owner]
	if !ok {
		return contextualBinding{}, false
	}
	if p.Name != "" {
		if cb, ok := m[p.Name]; ok {
			return cb, true
		}
	}
	if key := p.Key(); key != "" {
		cb, ok := m[key]
		return cb, ok
	}
	return contextualBinding{}, false
}
