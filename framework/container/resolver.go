package container

// Resolver is a pluggable strategy the container falls back to when no
// factory is registered for an id.
//
// Resolve may return (nil, nil) to let the next resolver in the chain try.
type Resolver interface {
	// IsResolvable reports whether Resolve can be expected to produce id.
	IsResolvable(id string) bool

	// Resolve builds the value for id.
	Resolve(id string) (any, error)
}

// ResolverFunc adapts a pair of functions to the Resolver interface.
type ResolverFunc struct {
	Can   func(id string) bool
	Build func(id string) (any, error)
}

func (f ResolverFunc) IsResolvable(id string) bool      { return f.Can(id) }
func (f ResolverFunc) Resolve(id string) (any, error) { return f.Build(id) }

// resolverChain is append-only; order is query priority.
type resolverChain []Resolver

func (rc resolverChain) isResolvable(id string) bool {
	for _, r := range rc {
		if r.IsResolvable(id) {
			return true
		}
	}
	return false
}

// resolve asks each resolver that claims id, in order. The first non-nil
// value wins; the first error aborts the walk.
func (rc resolverChain) resolve(id string) (value any, ok bool, err error) {
	for _, r := range rc {
		if !r.IsResolvable(id) {
			continue
		}
		v, err := r.Resolve(id)
		if err != nil {
			return nil, false, err
		}
		if v != nil {
			return v, true, nil
		}
	}
	return nil, false, nil
}
