package container

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// Definition is one constructible type known to a Catalog.
type Definition struct {
	ID   string
	Type reflect.Type

	ctor   reflect.Value // invalid for types added with Declare
	params []Parameter
}

// Concrete reports whether the definition can be instantiated: it has a
// constructor, or it is a declared non-interface type.
func (d *Definition) Concrete() bool {
	return d.ctor.IsValid() || d.Type.Kind() != reflect.Interface
}

// Parameters returns the constructor's parameters in declaration order.
func (d *Definition) Parameters() []Parameter { return slices.Clone(d.params) }

// call invokes the constructor with exactly args. Declared types without a
// constructor yield a pointer to a zero struct, or the zero value.
func (d *Definition) call(args []reflect.Value) (any, error) {
	if !d.ctor.IsValid() {
		if d.Type.Kind() == reflect.Struct {
			return reflect.New(d.Type).Interface(), nil
		}
		return reflect.Zero(d.Type).Interface(), nil
	}

	var out []reflect.Value
	if d.ctor.Type().IsVariadic() {
		out = d.ctor.CallSlice(args)
	} else {
		out = d.ctor.Call(args)
	}
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// ── Constructor options ───────────────────────────────────────────────────────

// ConstructorOption configures a constructor added to a Catalog.
type ConstructorOption func(*ctorOpts)

type ctorOpts struct {
	defaults map[int]any
	names    []string
}

// WithDefault gives parameter index a default used when the container
// cannot produce its type. The value must be assignable to the parameter.
//
//	catalog.Add(NewClient, container.WithDefault(1, 30*time.Second))
func WithDefault(index int, value any) ConstructorOption {
	return func(o *ctorOpts) {
		if o.defaults == nil {
			o.defaults = make(map[int]any)
		}
		o.defaults[index] = value
	}
}

// WithParamNames names the constructor's parameters for error messages and
// contextual bindings.
func WithParamNames(names ...string) ConstructorOption {
	return func(o *ctorOpts) { o.names = names }
}

// ── Catalog ───────────────────────────────────────────────────────────────────

// Catalog is the explicit registry of types the ConstructorResolver may
// build, keyed by TypeKey. Go cannot look a type up by name at runtime, so
// every autowirable type is added here first.
//
//	catalog := container.NewCatalog()
//	catalog.MustAdd(NewMailer)                 // func NewMailer(t *Transport) *Mailer
//	catalog.MustDeclare((*Transport)(nil))     // zero-value struct, no constructor
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Add registers a constructor function. It must return (T) or (T, error),
// and T must be a named type; the definition is keyed by TypeKey of T.
func (c *Catalog) Add(ctor any, opts ...ConstructorOption) error {
	if ctor == nil {
		return errors.New("container: constructor cannot be nil")
	}
	val := reflect.ValueOf(ctor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function, got %s", typ)
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return fmt.Errorf("container: constructor %s must return (T) or (T, error)", typ)
	}
	if typ.NumOut() == 2 && !typ.Out(1).Implements(errorType) {
		return fmt.Errorf("container: second return value of %s must implement error", typ)
	}

	out := typ.Out(0)
	id := typeKey(out)
	if id == "" {
		return fmt.Errorf("container: constructor %s returns unnamed type %s", typ, out)
	}

	var o ctorOpts
	for _, opt := range opts {
		opt(&o)
	}

	params := make([]Parameter, typ.NumIn())
	for i := range params {
		p := Parameter{
			Index:    i,
			Type:     typ.In(i),
			Variadic: typ.IsVariadic() && i == typ.NumIn()-1,
		}
		if i < len(o.names) {
			p.Name = o.names[i]
		}
		p.HasDefault = p.Variadic
		if v, ok := o.defaults[i]; ok {
			if _, err := adapt(v, p.Type); err != nil {
				return fmt.Errorf("container: default for parameter %s of %s: %w", p, id, err)
			}
			p.HasDefault, p.Default = true, v
		}
		params[i] = p
	}
	for i := range o.defaults {
		if i < 0 || i >= len(params) {
			return fmt.Errorf("container: default for parameter #%d of %s: out of range", i, id)
		}
	}

	return c.add(&Definition{ID: id, Type: out, ctor: val, params: params})
}

// MustAdd is like Add but panics on error.
func (c *Catalog) MustAdd(ctor any, opts ...ConstructorOption) {
	if err := c.Add(ctor, opts...); err != nil {
		panic(err)
	}
}

// Declare registers a type without a constructor, given as a typed nil
// pointer. Declared structs are built as a pointer to their zero value;
// declared interfaces are known but never resolvable.
//
//	catalog.Declare((*Clock)(nil))
func (c *Catalog) Declare(ptr any) error {
	t := reflect.TypeOf(ptr)
	if t == nil || t.Kind() != reflect.Pointer {
		return fmt.Errorf("container: Declare expects a typed nil pointer such as (*Service)(nil), got %T", ptr)
	}
	t = t.Elem()
	id := typeKey(t)
	if id == "" {
		return fmt.Errorf("container: cannot declare unnamed type %s", t)
	}
	return c.add(&Definition{ID: id, Type: t})
}

// MustDeclare is like Declare but panics on error.
func (c *Catalog) MustDeclare(ptr any) {
	if err := c.Declare(ptr); err != nil {
		panic(err)
	}
}

func (c *Catalog) add(d *Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[d.ID]; exists {
		return &DuplicateRegistrationError{ID: d.ID}
	}
	c.defs[d.ID] = d
	return nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[id]
	return d, ok
}

// Parameters returns the ordered parameter descriptors of id's constructor.
func (c *Catalog) Parameters(id string) ([]Parameter, bool) {
	d, ok := c.Lookup(id)
	if !ok {
		return nil, false
	}
	return d.Parameters(), true
}
