// Package container provides a service container with lazy, cached
// resolution and constructor autowiring.
//
// # Overview
//
// Services are identified by string ids. An id is either an arbitrary label
// ("mailer", "config") or a type key produced by TypeKey / KeyOf
// ("example.com/app.Mailer"). The container keeps two independent maps:
// write-once factories and the cache of resolved values.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register factories, resolvers and providers
//  3. Boot providers: registry.Boot()
//  4. Resolve: c.Get("mailer")
//
// # Factories
//
//	c.MustRegisterFactory("clock", func(c *container.Container) (any, error) {
//	    return realClock{}, nil
//	})
//
//	// Pre-built value, bypasses factories
//	c.Set("config", cfg)
//
// # Resolving
//
//	// Untyped
//	raw, err := c.Get("clock")
//
//	// Generic
//	clock, err := container.Resolve[Clock](c, "clock")
//
//	// By type key
//	mailer, err := container.Make[*Mailer](c)
//
// Get checks the cache, then the factory for the id, then every resolver in
// the order they were added. The first value produced is cached; nothing is
// consulted again for that id.
//
// # Autowiring
//
// Go has no runtime lookup of types by name, so autowirable types live in an
// explicit Catalog. The ConstructorResolver reads a catalogued constructor's
// parameters and, for each one in order:
//
//  1. asks the container for the parameter's type key, if Has reports it;
//  2. otherwise uses the parameter's default (WithDefault, or no values for
//     a variadic parameter);
//  3. otherwise fails with *InvalidDefinitionError.
//
//	catalog := container.NewCatalog()
//	catalog.MustAdd(NewMailer, container.WithDefault(1, 3))
//	catalog.MustDeclare((*Transport)(nil))
//
//	c.AddResolver(container.NewConstructorResolver(c, catalog))
//
// # Errors
//
// *NotFoundError, *CreationError, *InvalidDefinitionError,
// *DuplicateRegistrationError and *CyclicDependencyError match their
// sentinels with errors.Is. Classify reports the outermost one, so a factory
// failing on a nested missing id reads as broken rather than missing.
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&MailServiceProvider{})
//	registry.Boot()
//
// Deferred providers (IsDeferred true) register their factories only when
// one of their Provides() ids is first resolved.
package container
