// Package container provides an explicit-factory IoC container and Service
// Provider system on top of the singleton bean registry in framework/beans.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your application's
// named services. It supports transient bindings, singleton bindings,
// pre-built instances, and aliases. Because Go has no runtime constructor
// reflection, auto-wiring is replaced by explicit factory functions.
//
// Singleton resolution is backed by beans.Registry, which guarantees each
// factory runs at most once under concurrent Make calls, resolves circular
// references through early references, and tears resolved services down in
// dependency order.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()        — safe to resolve everything after this
//  4. Serve requests
//  5. Shut down: c.Flush()         — disposables run, dependents first
//
// # Bindings
//
//	// Transient — new instance every Make()
//	c.Bind("request-id", func(c *container.Container) any { return newID() })
//
//	// Singleton — created once, reused
//	c.Singleton("cache", func(c *container.Container) any {
//	    cfg := container.Resolve[*config.Config](c, "config")
//	    return cache.New(cfg)
//	})
//
//	// Pre-built value
//	c.Instance("config", myConfig)
//
//	// Alias
//	c.Alias("cache", "cacheManager")
//
// # Resolving
//
//	// Untyped — panics on missing binding or construction failure
//	raw := c.Make("cache")
//
//	// Error-returning
//	raw, err := c.TryMake("cache")
//
//	// Generic (preferred — no type assertion required)
//	cache := container.Resolve[*Cache](c, "cache")
//
// # Lifecycle Hooks
//
// Singletons resolved through the container that implement beans.Disposable
// or io.Closer are registered for teardown automatically. Resolving one
// singleton from inside another's factory records a destruction-order edge,
// so Flush destroys dependents before their dependencies.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Singleton("mailer", func(c *container.Container) any {
//	        cfg := container.Resolve[*config.Config](c, "config")
//	        return mail.NewSMTP(cfg)
//	    })
//	}
//
//	func (p *AppServiceProvider) Boot(app *container.Container) {
//	    // safe to resolve other bindings here
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) {
//	    app.Singleton("heavy", func(c *container.Container) any {
//	        return heavySetup() // only called on first app.Make("heavy")
//	    })
//	}
package container
