package container

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the factory registrations of one part of an
// application.
//
// Register is called when the provider is added (or, for deferred providers,
// on first use of one of its ids). Boot is called after ALL eager providers
// have been registered, making it safe to resolve other services inside Boot.
//
//	type MailServiceProvider struct{ container.BaseProvider }
//
//	func (p *MailServiceProvider) Register(app *container.Container) error {
//	    return app.RegisterFactory("mailer", func(c *container.Container) (any, error) {
//	        cfg, err := container.Resolve[*config.Config](c, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return mail.NewSMTP(cfg.Mail), nil
//	    })
//	}
type ServiceProvider interface {
	// Register adds factories to the container.
	// Do NOT resolve other services here; use Boot for that.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides returns the ids this provider registers.
	// Only consulted for deferred providers.
	Provides() []string

	// IsDeferred returns true if the provider should be registered lazily,
	// when one of its Provides() ids is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(app *container.Container) error { ... }
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred (lazy) providers, which are served through a resolver
// appended to the container's chain.
//
// The lock guards the registry's own state only; provider Register and Boot
// methods always run without it.
type ProviderRegistry struct {
	mu         sync.RWMutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // id → provider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	r := &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
	}
	app.AddResolver(deferredResolver{registry: r})
	return r
}

// Register adds a provider and calls its Register() method (unless deferred).
// Adding the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, id := range provider.Provides() {
			r.deferred[id] = provider
		}
		r.mu.Unlock()
		r.app.logger().Debug("deferred provider registered",
			zap.String("provider", fmt.Sprintf("%T", provider)),
			zap.Strings("provides", provider.Provides()))
		return nil
	}
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("container: registering %T: %w", provider, err)
	}

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	// If already booted, boot this provider immediately
	if booted {
		return r.boot(provider)
	}
	return nil
}

// Boot calls Boot() on all eager providers, in registration order.
// Subsequent calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	eager := slices.Clone(r.eager)
	r.mu.Unlock()

	for _, provider := range eager {
		if err := r.boot(provider); err != nil {
			return err
		}
	}
	return nil
}

func (r *ProviderRegistry) boot(provider ServiceProvider) error {
	if err := provider.Boot(r.app); err != nil {
		return fmt.Errorf("container: booting %T: %w", provider, err)
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.eager)
}

// lookup returns the deferred provider claiming id.
func (r *ProviderRegistry) lookup(id string) (ServiceProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.deferred[id]
	return p, ok
}

// load registers (and, once the registry is booted, boots) a deferred
// provider. Its ids stay claimed until both steps succeed, so a failed
// Register is retried by the next Get. After a failed Boot the registered
// factories answer ahead of the chain.
func (r *ProviderRegistry) load(provider ServiceProvider) error {
	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("container: registering deferred %T: %w", provider, err)
	}
	if r.Booted() {
		if err := r.boot(provider); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range provider.Provides() {
		if r.deferred[id] == provider {
			delete(r.deferred, id)
		}
	}
	return nil
}

// deferredResolver claims the ids of deferred providers. Resolving one loads
// the provider and runs the factory it registered.
type deferredResolver struct {
	registry *ProviderRegistry
}

func (d deferredResolver) IsResolvable(id string) bool {
	_, ok := d.registry.lookup(id)
	return ok
}

func (d deferredResolver) Resolve(id string) (any, error) {
	provider, ok := d.registry.lookup(id)
	if !ok {
		return nil, nil
	}
	if err := d.registry.load(provider); err != nil {
		return nil, &CreationError{ID: id, Err: err}
	}
	factory, ok := d.registry.app.factory(id)
	if !ok {
		return nil, &CreationError{ID: id, Err: fmt.Errorf("deferred %T did not register %q", provider, id)}
	}
	return d.registry.app.runFactory(id, factory)
}
