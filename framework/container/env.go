package container

import (
	"os"
	"strings"
)

// DefaultEnvPrefix is the id prefix served by an EnvResolver built with an
// empty prefix.
const DefaultEnvPrefix = "env."

// EnvResolver serves ids of the form "<prefix><NAME>" from the process
// environment, so factories and contextual bindings can depend on
// configuration values by id:
//
//	c.AddResolver(container.NewEnvResolver(""))
//	port, err := container.Resolve[string](c, "env.APP_PORT")
type EnvResolver struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvResolver creates a resolver for prefix, or DefaultEnvPrefix if empty.
func NewEnvResolver(prefix string) *EnvResolver {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvResolver{prefix: prefix, lookup: os.LookupEnv}
}

func (r *EnvResolver) name(id string) (string, bool) {
	name, ok := strings.CutPrefix(id, r.prefix)
	return name, ok && name != ""
}

// IsResolvable reports whether the variable named by id is set.
func (r *EnvResolver) IsResolvable(id string) bool {
	name, ok := r.name(id)
	if !ok {
		return false
	}
	_, set := r.lookup(name)
	return set
}

// Resolve returns the variable's value as a string, or nil if it is unset.
func (r *EnvResolver) Resolve(id string) (any, error) {
	name, ok := r.name(id)
	if !ok {
		return nil, nil
	}
	if v, set := r.lookup(name); set {
		return v, nil
	}
	return nil, nil
}
