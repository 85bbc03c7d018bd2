// Package beans provides a Spring-compatible singleton bean registry for Go.
//
// # Overview
//
// The registry is a concurrent, name-keyed object cache with a full lifecycle:
// beans are created lazily exactly once, circular references between beans
// under construction are resolved through early-reference exposure, and
// teardown runs in dependency order (dependents destroyed before the beans
// they depend on).
//
// It mirrors the behaviour of Spring's DefaultSingletonBeanRegistry as closely
// as Go's concurrency model allows. It assumes no bean-definition concept and
// no specific creation process: callers hand it bean names, factory callbacks
// and dependency name pairs, nothing more.
//
// # Registering and resolving
//
//	reg := beans.New()
//
//	// Pre-built instance — write-once, a second registration is an error.
//	err := reg.RegisterSingleton("config", cfg)
//
//	// Lazy creation — the factory runs at most once, even with N
//	// goroutines racing on the same name.
//	v, err := reg.GetOrCreate("mailer", func() (any, error) {
//	    return mail.NewSMTP(cfg), nil
//	})
//
//	// Plain lookup — lock-free fast path.
//	v, ok := reg.Get("mailer")
//
// # Circular references
//
// A bean's factory may expose an early reference before construction
// completes, so that a dependent bean created from within the factory can
// already obtain a (partially initialised) instance:
//
//	reg.GetOrCreate("a", func() (any, error) {
//	    a := &A{}
//	    reg.RegisterFactory("a", func() (any, error) { return a, nil })
//	    b, err := reg.GetOrCreate("b", newB) // newB may call reg.Get("a")
//	    ...
//	})
//
// Without an early factory, reentrant creation of the same name fails with a
// CurrentlyInCreationError — that is how unresolvable construction cycles
// surface.
//
// # Destruction
//
//	reg.RegisterDisposable("pool", pool)
//	reg.RegisterDependency("handler", "pool") // handler destroyed first
//	reg.DestroyAll()
//
// DestroyAll walks disposables in reverse registration order and, for each
// bean, destroys its registered dependents first. Disposal failures are
// logged and swallowed; teardown is best-effort and total.
//
// # Concurrency
//
// Simple reads and writes go through lock-free concurrent maps; a single
// goroutine-reentrant coordination lock serialises the multi-step creation
// and early-exposure protocols. By default, a creation attempt that finds the
// lock held for a different bean proceeds without it (logged, bounded by the
// atomic publish); WithStrictSerialization restores strict blocking.
package beans
