package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/inspect"
	"github.com/km-arc/go-container/framework/logging"
	"github.com/km-arc/go-container/framework/routing"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env files
// and the process environment.
//
// Registered ids:
//   - "config"                 → *config.Config
//   - KeyOf[config.Config]()   → the same value, for autowired constructors
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	envFiles := p.EnvFiles
	return app.RegisterFactories(map[string]container.Factory{
		"config": func(*container.Container) (any, error) {
			return config.Load(envFiles...), nil
		},
		container.KeyOf[config.Config](): alias("config"),
	})
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider builds the zap logger from "config" and hands it to
// the container once booted, so resolution is logged from then on.
//
// Registered ids:
//   - "logger"               → *zap.Logger
//   - KeyOf[zap.Logger]()    → the same value
type LoggingServiceProvider struct {
	container.BaseProvider
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	return app.RegisterFactories(map[string]container.Factory{
		"logger": func(c *container.Container) (any, error) {
			cfg, err := container.Resolve[*config.Config](c, "config")
			if err != nil {
				return nil, err
			}
			return logging.New(cfg)
		},
		container.KeyOf[zap.Logger](): alias("logger"),
	})
}

func (p *LoggingServiceProvider) Boot(app *container.Container) error {
	logger, err := container.Resolve[*zap.Logger](app, "logger")
	if err != nil {
		return err
	}
	app.SetLogger(logger)
	return nil
}

// ── EnvServiceProvider ────────────────────────────────────────────────────────

// EnvServiceProvider appends an EnvResolver using the configured id prefix,
// so "env.APP_PORT" style ids resolve from the environment after boot.
type EnvServiceProvider struct {
	container.BaseProvider
}

func (p *EnvServiceProvider) Register(*container.Container) error { return nil }

func (p *EnvServiceProvider) Boot(app *container.Container) error {
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	app.AddResolver(container.NewEnvResolver(cfg.Container.EnvPrefix))
	return nil
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Registered ids:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) error {
	return app.RegisterFactory("router", func(c *container.Container) (any, error) {
		logger, err := container.Resolve[*zap.Logger](c, "logger")
		if err != nil {
			return nil, err
		}
		return routing.New(logger), nil
	})
}

// ── InspectServiceProvider ────────────────────────────────────────────────────

// InspectServiceProvider mounts the container inspector on the router under
// INSPECT_PREFIX when INSPECT_ENABLED is true.
//
// Registered ids:
//   - "inspector"  → *inspect.Handler
type InspectServiceProvider struct {
	container.BaseProvider
}

func (p *InspectServiceProvider) Register(app *container.Container) error {
	return app.RegisterFactory("inspector", func(c *container.Container) (any, error) {
		logger, err := container.Resolve[*zap.Logger](c, "logger")
		if err != nil {
			return nil, err
		}
		return inspect.New(c, logger), nil
	})
}

func (p *InspectServiceProvider) Boot(app *container.Container) error {
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	if !cfg.Inspect.Enabled {
		return nil
	}

	router, err := container.Resolve[*routing.Router](app, "router")
	if err != nil {
		return err
	}
	handler, err := container.Resolve[*inspect.Handler](app, "inspector")
	if err != nil {
		return err
	}
	router.Prefix(cfg.Inspect.Prefix, handler.Routes)
	return nil
}

// alias returns a factory that resolves to whatever id resolves to.
func alias(id string) container.Factory {
	return func(c *container.Container) (any, error) { return c.Get(id) }
}
