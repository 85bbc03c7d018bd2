package beans

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// suppressedErrorLimit caps how many suppressed errors one creation attempt
// may accumulate before they stop being recorded.
const suppressedErrorLimit = 100

// Factory lazily constructs a bean instance.
type Factory func() (any, error)

// ── Registry ─────────────────────────────────────────────────────────────────

// Registry is a shared-instance registry for beans, keyed by name.
//
// Beans are registered pre-built (Instance-style) or created lazily exactly
// once through GetOrCreate. The registry also tracks disposables, dependency
// and containment edges for ordered teardown, and early references used to
// resolve circular construction.
//
// A Registry must be created with New. One registry per application context;
// there is no global instance.
type Registry struct {
	aliasRegistry

	// Concurrent stores: lock-free reads, atomic compare-and-insert writes.
	singletons sync.Map // name → finished instance
	factories  sync.Map // name → Factory (pending early exposure)
	early      sync.Map // name → early-reference instance
	callbacks  sync.Map // name → func(any), fired on publish

	// Registered names in registration order (finished + factory-registered).
	regMu         sync.Mutex
	registered    []string
	registeredSet map[string]struct{}

	// Coordination lock for the multi-step creation/early-exposure protocols.
	lock reentrantLock

	inCreation           sync.Map // set: names currently mid-construction
	inCreationExclusions sync.Map // set: names exempt from in-creation checks

	// Advisory marker of the creation attempt currently inside a factory.
	// Written without coordination; only the documented non-blocking
	// fallback branch reads it.
	creationOwner atomic.Int64
	creationSeq   atomic.Int64

	inDestruction atomic.Bool

	suppressedMu sync.Mutex
	suppressed   []error
	suppressedOn bool

	// Destruction state; see destruction.go.
	dispMu      sync.Mutex
	disposables map[string]Disposable
	dispOrder   []string

	containedMu sync.Mutex
	contained   map[string]*orderedSet // outer → inner beans

	dependentsMu sync.Mutex
	dependents   map[string]*orderedSet // name → beans depending on it

	dependenciesMu sync.Mutex
	dependencies   map[string]*orderedSet // name → beans it depends on

	log        *slog.Logger
	strict     bool
	lockPermit func() bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger used for creation and destruction
// diagnostics. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithStrictSerialization makes creation attempts always block on the
// coordination lock instead of proceeding without it when another goroutine
// holds the lock for a different bean. Stricter, but reintroduces a deadlock
// risk when factories hand work to other goroutines that create beans.
func WithStrictSerialization() Option {
	return func(r *Registry) { r.strict = true }
}

// WithLockPermit installs a predicate deciding whether the calling goroutine
// may block on the coordination lock at all. Callers exempted by the
// predicate proceed unlocked: the atomic publish still guarantees a single
// stored instance per name, but redundant factory runs become possible.
// Intended for background bootstrap workers that must never block.
func WithLockPermit(permit func() bool) Option {
	return func(r *Registry) { r.lockPermit = permit }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		registeredSet: make(map[string]struct{}),
		disposables:   make(map[string]Disposable),
		contained:     make(map[string]*orderedSet),
		dependents:    make(map[string]*orderedSet),
		dependencies:  make(map[string]*orderedSet),
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ── Registration ─────────────────────────────────────────────────────────────

// RegisterSingleton registers a pre-built instance under the given name.
// Names are write-once: registering a second instance under the same name
// returns a DuplicateSingletonError and leaves the registry unchanged.
func (r *Registry) RegisterSingleton(name string, instance any) error {
	if name == "" {
		return errors.New("beans: bean name must not be empty")
	}
	if instance == nil {
		return errors.New("beans: singleton instance must not be nil")
	}
	name = r.CanonicalName(name)
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.addSingleton(name, instance)
}

// RegisterFactory registers a factory for early-exposure of the named bean,
// replacing any previously registered one. The factory is consumed at most
// once, the first time an early reference for the name is requested while the
// bean is in creation.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	if factory == nil {
		panic("beans: singleton factory must not be nil")
	}
	name = r.CanonicalName(name)
	r.factories.Store(name, factory)
	r.early.Delete(name)
	r.recordRegistration(name)
}

// AddSingletonCallback registers a callback invoked when the finished
// instance for the given name is published.
func (r *Registry) AddSingletonCallback(name string, fn func(any)) {
	r.callbacks.Store(r.CanonicalName(name), fn)
}

// addSingleton publishes a finished instance: compare-and-insert into the
// singleton store, drop early-exposure state, record registration order.
func (r *Registry) addSingleton(name string, instance any) error {
	if _, loaded := r.singletons.LoadOrStore(name, instance); loaded {
		return DuplicateSingletonError{Name: name}
	}
	r.factories.Delete(name)
	r.early.Delete(name)
	r.recordRegistration(name)

	if cb, ok := r.callbacks.Load(name); ok {
		cb.(func(any))(instance)
	}
	return nil
}

// removeSingleton drops a name from all instance stores.
func (r *Registry) removeSingleton(name string) {
	r.singletons.Delete(name)
	r.factories.Delete(name)
	r.early.Delete(name)
	r.removeRegistration(name)
}

// ── Lookup ───────────────────────────────────────────────────────────────────

// Get returns the instance registered under the given name, allowing early
// references to beans currently in creation.
func (r *Registry) Get(name string) (any, bool) {
	return r.Lookup(name, true)
}

// Lookup returns the instance registered under the given name.
//
// The fast path is a lock-free read of the finished store. When the name is
// mid-construction, the early-reference store is consulted and — if
// allowEarlyReference is set — its pending factory may be materialised under
// the coordination lock. The lock is only try-acquired: during concurrent
// construction Lookup may transiently report absent rather than block.
func (r *Registry) Lookup(name string, allowEarlyReference bool) (any, bool) {
	name = r.CanonicalName(name)

	if v, ok := r.singletons.Load(name); ok {
		return v, true
	}
	if !r.inCreationSet(name) {
		return nil, false
	}
	if v, ok := r.early.Load(name); ok {
		return v, true
	}
	if !allowEarlyReference {
		return nil, false
	}
	if !r.lock.TryLock() {
		// Lock contended by a creation elsewhere; report absent instead of
		// blocking. Callers tolerate transient misses during construction.
		return nil, false
	}
	defer r.lock.Unlock()

	// Consistent materialisation of the early reference within the full lock.
	if v, ok := r.singletons.Load(name); ok {
		return v, true
	}
	if v, ok := r.early.Load(name); ok {
		return v, true
	}
	f, ok := r.factories.Load(name)
	if !ok {
		return nil, false
	}
	obj, err := f.(Factory)()
	if err != nil {
		r.factories.Delete(name)
		r.log.Error("early-reference factory failed", "name", name, "error", err)
		r.AddSuppressed(err)
		return nil, false
	}
	// The singleton could have been added or removed in the meantime.
	if _, consumed := r.factories.LoadAndDelete(name); consumed {
		r.early.Store(name, obj)
		return obj, true
	}
	v, ok := r.singletons.Load(name)
	return v, ok
}

// Contains reports whether a finished instance is registered for the name.
func (r *Registry) Contains(name string) bool {
	_, ok := r.singletons.Load(r.CanonicalName(name))
	return ok
}

// Names returns all registered bean names in registration order, including
// names registered for early exposure only.
func (r *Registry) Names() []string {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	out := make([]string, len(r.registered))
	copy(out, r.registered)
	return out
}

// Count returns the number of registered bean names.
func (r *Registry) Count() int {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	return len(r.registered)
}

// ── Get-or-create ────────────────────────────────────────────────────────────

// GetOrCreate returns the singleton registered under the given name, creating
// it with the factory if absent. The factory runs at most once per name even
// under concurrent callers; all callers share the single published instance.
//
// Creation fails with a CreationNotAllowedError during teardown, a
// CurrentlyInCreationError on an unresolvable construction cycle, or a
// CreationError wrapping the factory's failure (with any suppressed secondary
// errors attached). A factory error matching ErrIllegalState is recovered
// silently when the instance turns out to exist.
func (r *Registry) GetOrCreate(name string, factory Factory) (any, error) {
	if name == "" {
		return nil, errors.New("beans: bean name must not be empty")
	}
	if factory == nil {
		return nil, errors.New("beans: singleton factory must not be nil")
	}
	name = r.CanonicalName(name)

	acquire := r.lockPermit == nil || r.lockPermit()
	locked := acquire && r.lock.TryLock()
	defer func() {
		if locked {
			r.lock.Unlock()
		}
	}()

	if v, ok := r.singletons.Load(name); ok {
		return v, nil
	}

	markedOwner := false
	if acquire {
		if locked {
			r.creationOwner.Store(r.creationSeq.Add(1))
			markedOwner = true
		} else if r.creationOwner.Load() != 0 && !r.strict && !r.inCreationSet(name) {
			// Another goroutine is busy inside a singleton factory for a
			// different bean, potentially blocked on beans of its own.
			// Process this bean outside the lock: exposure stays thread-safe
			// via the atomic publish, at the risk of collisions when this
			// creation triggers other beans as dependencies. Contention for
			// the same name never takes this branch: those callers block
			// below and share the holder's published instance.
			r.log.Info("creating singleton bean outside coordination lock",
				"name", name, "inCreation", r.namesInCreation())
		} else {
			r.lock.Lock()
			locked = true
			if v, ok := r.singletons.Load(name); ok {
				return v, nil
			}
		}
	}

	if r.inDestruction.Load() {
		if markedOwner {
			r.creationOwner.Store(0)
		}
		return nil, CreationNotAllowedError{Name: name}
	}
	r.log.Debug("creating shared instance of singleton bean", "name", name)
	if err := r.beforeSingletonCreation(name); err != nil {
		if locked || !acquire {
			if markedOwner {
				r.creationOwner.Store(0)
			}
			return nil, err
		}
		// An unlocked caller conflicting on the in-creation marker is racing
		// the lock holder on this very name. Wait for the holder to finish
		// and share its outcome instead of reporting a spurious cycle.
		r.lock.Lock()
		locked = true
		if v, ok := r.singletons.Load(name); ok {
			return v, nil
		}
		// The holder failed and unmarked the name; take over the creation.
		if err := r.beforeSingletonCreation(name); err != nil {
			return nil, err
		}
	}

	record := locked && r.beginSuppressed()
	var related []error
	obj, err := func() (any, error) {
		defer func() {
			if record {
				related = r.endSuppressed()
			}
			r.creationOwner.Store(0)
			r.afterSingletonCreation(name)
		}()
		r.creationOwner.Store(r.creationSeq.Add(1))
		return factory()
	}()

	switch {
	case err == nil:
		if addErr := r.addSingleton(name, obj); addErr != nil {
			// A second publish after lock-protected creation is a
			// consistency violation, not a recoverable race.
			panic(fmt.Sprintf("beans: duplicate publish of singleton %q: %v", name, addErr))
		}
		return obj, nil
	case errors.Is(err, ErrIllegalState):
		// The singleton may have implicitly appeared in the meantime; if so,
		// proceed with it, since the error indicates exactly that state.
		if v, ok := r.singletons.Load(name); ok {
			return v, nil
		}
		return nil, err
	default:
		return nil, &CreationError{Name: name, Err: err, Related: related}
	}
}

// ── Creation tracking ────────────────────────────────────────────────────────

// SetCurrentlyInCreation marks a name as permanently excluded from
// in-creation checks (inCreation=false) or restores the checks
// (inCreation=true). Excluded names never fail the cycle detection and their
// enter/exit transitions are no-ops.
func (r *Registry) SetCurrentlyInCreation(name string, inCreation bool) {
	name = r.CanonicalName(name)
	if !inCreation {
		r.inCreationExclusions.Store(name, struct{}{})
	} else {
		r.inCreationExclusions.Delete(name)
	}
}

// IsCurrentlyInCreation reports whether the named bean is mid-construction
// and not excluded from in-creation checks.
func (r *Registry) IsCurrentlyInCreation(name string) bool {
	name = r.CanonicalName(name)
	return !r.excludedFromCreationChecks(name) && r.inCreationSet(name)
}

func (r *Registry) excludedFromCreationChecks(name string) bool {
	_, ok := r.inCreationExclusions.Load(name)
	return ok
}

func (r *Registry) inCreationSet(name string) bool {
	_, ok := r.inCreation.Load(name)
	return ok
}

// beforeSingletonCreation enters the in-creation state, detecting reentrant
// creation of the same name.
func (r *Registry) beforeSingletonCreation(name string) error {
	if r.excludedFromCreationChecks(name) {
		return nil
	}
	if _, loaded := r.inCreation.LoadOrStore(name, struct{}{}); loaded {
		return CurrentlyInCreationError{Name: name}
	}
	return nil
}

// afterSingletonCreation exits the in-creation state. Exiting a name that is
// not marked is a double-exit bug, so it panics rather than soft-fails.
func (r *Registry) afterSingletonCreation(name string) {
	if r.excludedFromCreationChecks(name) {
		return
	}
	if _, loaded := r.inCreation.LoadAndDelete(name); !loaded {
		panic(fmt.Sprintf("beans: singleton %q is not currently in creation", name))
	}
}

func (r *Registry) namesInCreation() []string {
	var names []string
	r.inCreation.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	return names
}

// ── Suppressed errors ────────────────────────────────────────────────────────

// AddSuppressed records a secondary error observed while resolving a
// circular reference during the current creation attempt. Recorded errors
// are attached as related causes to the eventual CreationError, up to a
// limit of 100 per attempt. Outside a recording creation attempt this is a
// no-op.
func (r *Registry) AddSuppressed(err error) {
	if err == nil {
		return
	}
	r.suppressedMu.Lock()
	defer r.suppressedMu.Unlock()
	if r.suppressedOn && len(r.suppressed) < suppressedErrorLimit {
		r.suppressed = append(r.suppressed, err)
	}
}

// beginSuppressed starts a recording window unless one is already active.
func (r *Registry) beginSuppressed() bool {
	r.suppressedMu.Lock()
	defer r.suppressedMu.Unlock()
	if r.suppressedOn {
		return false
	}
	r.suppressedOn = true
	r.suppressed = nil
	return true
}

// endSuppressed closes the recording window and returns what it gathered.
func (r *Registry) endSuppressed() []error {
	r.suppressedMu.Lock()
	defer r.suppressedMu.Unlock()
	out := r.suppressed
	r.suppressed = nil
	r.suppressedOn = false
	return out
}

// ── Registration order bookkeeping ───────────────────────────────────────────

func (r *Registry) recordRegistration(name string) {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	if _, ok := r.registeredSet[name]; ok {
		return
	}
	r.registeredSet[name] = struct{}{}
	r.registered = append(r.registered, name)
}

func (r *Registry) removeRegistration(name string) {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	if _, ok := r.registeredSet[name]; !ok {
		return
	}
	delete(r.registeredSet, name)
	for i, n := range r.registered {
		if n == name {
			r.registered = append(r.registered[:i], r.registered[i+1:]...)
			break
		}
	}
}

func (r *Registry) clearRegistrations() {
	r.regMu.Lock()
	defer r.regMu.Unlock()
	r.registered = nil
	r.registeredSet = make(map[string]struct{})
}
