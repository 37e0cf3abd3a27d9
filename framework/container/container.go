package container

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// ── Factory ───────────────────────────────────────────────────────────────────

// Factory is a deferred constructor registered for one id. It receives the
// container so it can look up its own dependencies.
type Factory func(c *Container) (any, error)

// Self is the id every container registers itself under.
const Self = "container"

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the service container.
//
// It keeps two independent maps:
//   - factories: write-once, filled at configuration time
//   - services:  the resolved-value cache, filled lazily by Get or directly by Set
//
// A cache miss in Get tries the factory for the id, then the resolver chain,
// then fails with *NotFoundError. Resolution is synchronous and expected to
// run on one goroutine at a time; the maps themselves are safe to read
// concurrently.
type Container struct {
	mu sync.RWMutex

	// id → factory
	factories map[string]Factory

	// id → resolved value
	services map[string]any

	resolvers resolverChain

	// ids currently being resolved, outermost first
	building []string

	log *zap.Logger
}

// Option configures a Container in New.
type Option func(*Container)

// WithFactories preloads factory definitions. Invalid entries panic.
func WithFactories(factories map[string]Factory) Option {
	return func(c *Container) {
		if err := c.RegisterFactories(factories); err != nil {
			panic(err)
		}
	}
}

// WithResolvers appends resolvers to the chain, in order.
func WithResolvers(resolvers ...Resolver) Option {
	return func(c *Container) {
		for _, r := range resolvers {
			c.AddResolver(r)
		}
	}
}

// WithLogger sets the logger used for debug tracing of resolution.
func WithLogger(l *zap.Logger) Option {
	return func(c *Container) { c.SetLogger(l) }
}

// New creates a container. The container is bound to itself under Self and
// under its own type key, so autowired constructors may ask for *Container.
func New(opts ...Option) *Container {
	c := &Container{
		factories: make(map[string]Factory),
		services:  make(map[string]any),
		log:       zap.NewNop(),
	}
	self := func(c *Container) (any, error) { return c, nil }
	c.MustRegisterFactory(Self, self)
	c.MustRegisterFactory(KeyOf[Container](), self)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetLogger replaces the container's logger. A nil logger disables logging.
func (c *Container) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = l
}

func (c *Container) logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.log
}

// ── Registration ──────────────────────────────────────────────────────────────

// RegisterFactory adds a deferred constructor for id. A factory can never be
// replaced: a second registration for the same id returns a
// *DuplicateRegistrationError and leaves the first one in effect.
//
//	c.RegisterFactory("mailer", func(c *container.Container) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](c, "config")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return mail.NewSMTP(cfg.Mail), nil
//	})
func (c *Container) RegisterFactory(id string, factory Factory) error {
	if id == "" {
		return ErrEmptyID
	}
	if factory == nil {
		return fmt.Errorf("%w: %q", ErrNilFactory, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[id]; exists {
		return &DuplicateRegistrationError{ID: id}
	}
	c.factories[id] = factory
	return nil
}

// MustRegisterFactory is like RegisterFactory but panics on error. Useful
// while wiring an application, where a duplicate id is a programming error.
func (c *Container) MustRegisterFactory(id string, factory Factory) {
	if err := c.RegisterFactory(id, factory); err != nil {
		panic(err)
	}
}

// RegisterFactories registers every entry in ascending id order and stops at
// the first failure.
func (c *Container) RegisterFactories(factories map[string]Factory) error {
	for _, id := range slices.Sorted(maps.Keys(factories)) {
		if err := c.RegisterFactory(id, factories[id]); err != nil {
			return err
		}
	}
	return nil
}

// Set stores value in the cache for id, overwriting any previous value.
// Factories are not touched. An empty id is ignored, as RegisterFactory
// rejects it with ErrEmptyID.
//
//	c.Set("config", cfg)
func (c *Container) Set(id string, value any) {
	if id == "" {
		c.logger().Debug("empty id ignored by Set")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[id] = value
}

// AddResolver appends r to the resolver chain. Resolvers are consulted in
// the order they were added.
func (c *Container) AddResolver(r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvers = append(c.resolvers, r)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the value for id, building and caching it on first use.
//
// Errors are *NotFoundError when nothing can produce id, *CreationError when
// the registered factory failed, *CyclicDependencyError when id is already
// being resolved further up the stack, or whatever a resolver returned
// (*InvalidDefinitionError for the ConstructorResolver). Failures are not
// cached.
func (c *Container) Get(id string) (any, error) {
	c.mu.RLock()
	value, ok := c.services[id]
	log := c.log
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	if i := slices.Index(c.building, id); i >= 0 {
		chain := append(slices.Clone(c.building[i:]), id)
		return nil, &CyclicDependencyError{Chain: chain}
	}
	c.building = append(c.building, id)
	defer func() { c.building = c.building[:len(c.building)-1] }()

	value, err := c.create(id)
	if err != nil {
		log.Debug("service resolution failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	c.services[id] = value
	c.mu.Unlock()
	return value, nil
}

// Has reports whether a factory is registered for id or some resolver claims
// it. A true result only means Get will not fail with *NotFoundError; the
// factory or resolver may still fail. Values seeded with Set are not
// considered.
func (c *Container) Has(id string) bool {
	c.mu.RLock()
	_, ok := c.factories[id]
	resolvers := c.resolvers
	c.mu.RUnlock()
	return ok || resolvers.isResolvable(id)
}

// create runs on a cache miss: factory first, then the resolver chain.
func (c *Container) create(id string) (any, error) {
	if factory, ok := c.factory(id); ok {
		return c.runFactory(id, factory)
	}

	c.mu.RLock()
	resolvers := c.resolvers
	c.mu.RUnlock()

	value, ok, err := resolvers.resolve(id)
	if err != nil {
		return nil, err
	}
	if ok {
		c.logger().Debug("service autowired", zap.String("id", id), zap.String("type", fmt.Sprintf("%T", value)))
		return value, nil
	}
	return nil, &NotFoundError{ID: id}
}

func (c *Container) factory(id string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[id]
	return f, ok
}

// runFactory invokes factory and wraps any error or panic in a
// *CreationError for id.
func (c *Container) runFactory(id string, factory Factory) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, &CreationError{ID: id, Err: fmt.Errorf("factory panicked: %v", r)}
		}
	}()

	value, err = factory(c)
	if err != nil {
		return nil, &CreationError{ID: id, Err: err}
	}
	c.logger().Debug("service created", zap.String("id", id))
	return value, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Resolved returns true if a value for id is cached.
func (c *Container) Resolved(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.services[id]
	return ok
}

// IDs returns the sorted union of factory ids and cached ids (for debugging).
func (c *Container) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.factories)+len(c.services))
	for id := range c.factories {
		out = append(out, id)
	}
	for id := range c.services {
		if _, already := c.factories[id]; !already {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// ── Type keys ─────────────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, the id under which
// autowiring looks a type up. Pointers are stripped, so (*Mailer)(nil),
// &Mailer{} and Mailer{} share one key.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "example.com/app.UserRepository"
//	c.RegisterFactory(key, factory)
func TypeKey(v any) string {
	return typeKey(reflect.TypeOf(v))
}

// KeyOf is the generic form of TypeKey.
//
//	container.KeyOf[UserRepository]()
func KeyOf[T any]() string {
	return typeKey(reflect.TypeFor[T]())
}

// typeKey returns "" for types that cannot be looked up: builtins such as
// int or error, and unnamed types such as []string or struct{}.
func typeKey(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.PkgPath() == "" {
		return ""
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Get and converts the result to T.
//
//	// Instead of: v, err := c.Get("db"); db := v.(*sql.DB)
//	// Write:      db, err := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	value, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	rv, err := adapt(value, reflect.TypeFor[T]())
	if err != nil {
		return zero, fmt.Errorf("container: Resolve[%s]: %q: %w", reflect.TypeFor[T](), id, err)
	}
	if !rv.IsValid() || (rv.Kind() == reflect.Interface && rv.IsNil()) {
		return zero, nil
	}
	return rv.Interface().(T), nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](c *Container, id string) T {
	v, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return v
}

// Make resolves T by its type key.
//
//	mailer, err := container.Make[*Mailer](c)
func Make[T any](c *Container) (T, error) {
	key := KeyOf[T]()
	if key == "" {
		var zero T
		return zero, fmt.Errorf("container: Make[%s]: type has no key", reflect.TypeFor[T]())
	}
	return Resolve[T](c, key)
}
