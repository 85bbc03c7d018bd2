package container

import (
	"fmt"
	"io"
	"sync"

	"github.com/km-arc/go-spring/framework/beans"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
type Factory func(c *Container) any

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the bean factory facade — explicit factory wiring in front of
// the singleton registry in framework/beans.
//
// The container owns the what (named bindings, transient vs singleton); the
// registry owns the how (create-once semantics, circular-reference early
// references, dependency-ordered teardown). Every resolved singleton goes
// through the registry, so:
//
//   - Singleton factories run at most once even under concurrent Make calls
//   - Resolving "b" from inside the factory of "a" records a destruction
//     ordering edge (a is destroyed before b)
//   - Resolved singletons implementing beans.Disposable or io.Closer are
//     torn down in dependency order on Flush
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// singleton lifecycle, aliases and destruction ordering
	beans *beans.Registry

	// stack of abstracts currently being built (for dependency recording)
	buildMu    sync.Mutex
	buildStack []string
}

// New creates an empty container. Options are forwarded to the underlying
// bean registry.
func New(opts ...beans.Option) *Container {
	c := &Container{
		bindings: make(map[string]*binding),
		beans:    beans.New(opts...),
	}
	// Bind the container to itself so factories can resolve it by name.
	c.Instance("container", c)
	return c
}

// Beans exposes the underlying singleton registry, for callers that need the
// full lifecycle surface (early references, explicit dependency edges,
// per-bean destruction).
func (c *Container) Beans() *beans.Registry { return c.beans }

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory: a new instance per Make.
func (c *Container) Bind(abstract string, factory Factory) {
	c.register(abstract, factory, false)
}

// Singleton registers a factory whose result is created once, cached in the
// bean registry, and shared by all callers.
func (c *Container) Singleton(abstract string, factory Factory) {
	c.register(abstract, factory, true)
}

func (c *Container) register(abstract string, factory Factory, singleton bool) {
	key := c.beans.CanonicalName(abstract)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[key] = &binding{factory: factory, singleton: singleton}
}

// Instance registers a pre-built value as a finished singleton. Names are
// write-once; registering a second instance under the same name panics, as
// that is a configuration error.
func (c *Container) Instance(abstract string, instance any) {
	key := c.beans.CanonicalName(abstract)
	if err := c.beans.RegisterSingleton(key, instance); err != nil {
		panic("container: " + err.Error())
	}
	c.registerDisposable(key, instance)
}

// Alias registers an alternative name for an abstract.
func (c *Container) Alias(abstract, alias string) {
	if err := c.beans.RegisterAlias(abstract, alias); err != nil {
		panic("container: " + err.Error())
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container, panicking on missing
// bindings or construction failure.
func (c *Container) Make(abstract string) any {
	v, err := c.TryMake(abstract)
	if err != nil {
		panic("container: " + err.Error())
	}
	return v
}

// TryMake resolves an abstract from the container, returning construction
// and wiring failures instead of panicking.
func (c *Container) TryMake(abstract string) (any, error) {
	key := c.beans.CanonicalName(abstract)
	c.recordDependency(key)

	// Singleton cache fast path (includes early references while a
	// circularly-dependent bean is mid-construction).
	if v, ok := c.beans.Get(key); ok {
		return v, nil
	}

	c.mu.RLock()
	b, ok := c.bindings[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no binding registered for [%s]", abstract)
	}

	if !b.singleton {
		return c.build(key, b.factory)
	}

	v, err := c.beans.GetOrCreate(key, func() (any, error) {
		return c.build(key, b.factory)
	})
	if err != nil {
		return nil, err
	}
	c.registerDisposable(key, v)
	return v, nil
}

// build runs a factory with the abstract pushed on the build stack, so
// nested Make calls can be recorded as destruction-order dependencies.
// Factory panics are converted into errors.
func (c *Container) build(key string, f Factory) (v any, err error) {
	c.buildMu.Lock()
	c.buildStack = append(c.buildStack, key)
	c.buildMu.Unlock()

	defer func() {
		c.buildMu.Lock()
		for i := len(c.buildStack) - 1; i >= 0; i-- {
			if c.buildStack[i] == key {
				c.buildStack = append(c.buildStack[:i], c.buildStack[i+1:]...)
				break
			}
		}
		c.buildMu.Unlock()
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("building [%s]: %v", key, rec)
		}
	}()

	return f(c), nil
}

// recordDependency registers "the bean currently being built depends on
// key" so teardown destroys the dependent first.
func (c *Container) recordDependency(key string) {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()
	if n := len(c.buildStack); n > 0 {
		if parent := c.buildStack[n-1]; parent != key {
			c.beans.RegisterDependency(parent, key)
		}
	}
}

// registerDisposable hooks a resolved singleton into ordered teardown when
// it knows how to shut itself down.
func (c *Container) registerDisposable(key string, v any) {
	switch d := v.(type) {
	case *Container:
		// The container's self-binding is not a disposable.
	case beans.Disposable:
		c.beans.RegisterDisposable(key, d)
	case io.Closer:
		c.beans.RegisterDisposable(key, beans.DisposableFunc(d.Close))
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has been registered.
func (c *Container) Bound(abstract string) bool {
	key := c.beans.CanonicalName(abstract)
	c.mu.RLock()
	_, hasBinding := c.bindings[key]
	c.mu.RUnlock()
	return hasBinding || c.beans.Contains(key)
}

// Resolved returns true if the abstract has been resolved (or registered as
// an instance) at least once.
func (c *Container) Resolved(abstract string) bool {
	return c.beans.Contains(abstract)
}

// Forget removes all registrations for an abstract: the binding, and the
// cached singleton via an ordered registry destruction (dependents first,
// disposable invoked).
func (c *Container) Forget(abstract string) {
	key := c.beans.CanonicalName(abstract)
	c.mu.Lock()
	delete(c.bindings, key)
	c.mu.Unlock()
	c.beans.Destroy(key)
}

// Flush resets the entire container: all cached singletons are destroyed in
// dependency order and every binding is dropped.
func (c *Container) Flush() {
	c.beans.DestroyAll()
	c.mu.Lock()
	c.bindings = make(map[string]*binding)
	c.mu.Unlock()
}

// Bindings returns all registered abstract keys (for debugging).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings))
	for k := range c.bindings {
		out = append(out, k)
	}
	for _, k := range c.beans.Names() {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	return out
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
//
//	// Instead of: cfg := c.Make("config").(*config.Config)
//	// Write:      cfg := container.Resolve[*config.Config](c, "config")
func Resolve[T any](c *Container, abstract string) T {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: Resolve[%T]: [%s] resolved to %T", *new(T), abstract, instance))
	}
	return typed
}

// MustResolve is like Resolve but returns (T, bool) without panicking.
func MustResolve[T any](c *Container, abstract string) (T, bool) {
	instance, err := c.TryMake(abstract)
	if err != nil {
		var zero T
		return zero, false
	}
	typed, ok := instance.(T)
	return typed, ok
}
