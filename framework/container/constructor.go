package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ConstructorResolver autowires catalogued types: it reads the constructor's
// parameters, resolves each one through the container and calls the
// constructor with the results.
//
//	catalog := container.NewCatalog()
//	catalog.MustAdd(NewUserService)
//
//	c := container.New()
//	c.AddResolver(container.NewConstructorResolver(c, catalog))
//
//	svc, err := container.Make[*UserService](c)
type ConstructorResolver struct {
	container *Container
	catalog   *Catalog

	mu sync.RWMutex
	// contextual[owner][needs] = binding
	contextual map[string]map[string]contextualBinding
}

// NewConstructorResolver creates a resolver that builds the types in catalog
// and asks c for their parameters.
func NewConstructorResolver(c *Container, catalog *Catalog) *ConstructorResolver {
	return &ConstructorResolver{
		container:  c,
		catalog:    catalog,
		contextual: make(map[string]map[string]contextualBinding),
	}
}

// IsResolvable reports whether id names a concrete catalogued type.
func (r *ConstructorResolver) IsResolvable(id string) bool {
	d, ok := r.catalog.Lookup(id)
	return ok && d.Concrete()
}

// Resolve builds a new instance of id. Every failure is an
// *InvalidDefinitionError; failures while resolving parameters or running
// the constructor are kept as its cause.
func (r *ConstructorResolver) Resolve(id string) (any, error) {
	d, ok := r.catalog.Lookup(id)
	if !ok {
		return nil, invalidDefinition(nil, "the definition %s doesn't exist", id)
	}
	if !d.Concrete() {
		return nil, invalidDefinition(nil, "the definition %s is not guessable", id)
	}

	v, err := r.instantiate(d)
	if err != nil {
		return nil, invalidDefinition(err, "the definition %s is not instantiable", id)
	}
	return v, nil
}

func (r *ConstructorResolver) instantiate(d *Definition) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, fmt.Errorf("constructor panicked: %v", rec)
		}
	}()

	if len(d.params) == 0 {
		v, err = d.call(nil)
	} else {
		args := make([]reflect.Value, len(d.params))
		for i, p := range d.params {
			if args[i], err = r.resolveParameter(d.ID, p); err != nil {
				return nil, err
			}
		}
		v, err = d.call(args)
	}

	if err == nil && d.ctor.IsValid() && isNil(v) {
		v, err = nil, errors.New("constructor returned nil")
	}
	return v, err
}

// isNil reports an untyped nil or a typed nil pointer, map, slice, func,
// chan or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
