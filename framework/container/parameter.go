package container

import (
	"fmt"
	"reflect"
)

// Parameter describes one formal parameter of a catalogued constructor.
type Parameter struct {
	Index int
	// Name is only known when the constructor was added WithParamNames.
	Name string
	Type reflect.Type

	// Variadic marks the trailing ...T parameter. It carries an implicit
	// default of no values.
	Variadic   bool
	HasDefault bool
	Default    any
}

// Key is the id the container is asked for, or "" for builtin and unnamed
// types, which are never looked up.
func (p Parameter) Key() string { return typeKey(p.Type) }

func (p Parameter) String() string {
	if p.Name != "" {
		return fmt.Sprintf("$%s (#%d %s)", p.Name, p.Index, p.Type)
	}
	return fmt.Sprintf("#%d (%s)", p.Index, p.Type)
}

// resolveParameter decides the argument for p, owned by the definition
// owner. The first matching rule wins:
//
//  1. a contextual binding for (owner, p)
//  2. the container can produce p's type
//  3. p has a default
//
// Otherwise the parameter is unguessable.
func (r *ConstructorResolver) resolveParameter(owner string, p Parameter) (reflect.Value, error) {
	if cv, ok := r.contextualFor(owner, p); ok {
		if cv.isValue {
			return adaptParameter(cv.value, p)
		}
		return r.fromContainer(cv.id, p)
	}

	if key := p.Key(); key != "" && r.container.Has(key) {
		return r.fromContainer(key, p)
	}

	if p.HasDefault {
		return adaptParameter(p.Default, p)
	}

	return reflect.Value{}, invalidDefinition(nil, "parameter %s of %s has no value defined or guessable", p, owner)
}

func (r *ConstructorResolver) fromContainer(id string, p Parameter) (reflect.Value, error) {
	v, err := r.container.Get(id)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("resolving parameter %s: %w", p, err)
	}
	return adaptParameter(v, p)
}

func adaptParameter(v any, p Parameter) (reflect.Value, error) {
	rv, err := adapt(v, p.Type)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("parameter %s: %w", p, err)
	}
	return rv, nil
}

// adapt converts a resolved value to the declared type t. A pointer is
// dereferenced when only its element fits, so a *Config service can satisfy
// a Config parameter.
func adapt(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", t)
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(t) {
		return rv.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
}
