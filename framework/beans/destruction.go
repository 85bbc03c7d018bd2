package beans

import (
	"fmt"
	"sync"
)

// Disposable is a teardown callback associated with a bean name. The
// registered disposable may be an adapter and need not be the cached
// singleton instance itself.
type Disposable interface {
	Destroy() error
}

// DisposableFunc adapts a plain function to the Disposable interface.
type DisposableFunc func() error

// Destroy implements Disposable.
func (f DisposableFunc) Destroy() error { return f() }

// ── Registration of destruction metadata ─────────────────────────────────────

// RegisterDisposable registers a disposable for the given bean name, to be
// invoked when the bean — or the whole registry — is destroyed. Disposal runs
// in reverse registration order during DestroyAll; re-registering a name
// keeps its original position.
func (r *Registry) RegisterDisposable(name string, d Disposable) {
	name = r.CanonicalName(name)
	r.dispMu.Lock()
	defer r.dispMu.Unlock()
	if _, ok := r.disposables[name]; !ok {
		r.dispOrder = append(r.dispOrder, name)
	}
	r.disposables[name] = d
}

// RegisterDependency records that dependent depends on dependsOn: dependent
// will be destroyed before dependsOn. Edges may reference beans that do not
// exist yet.
func (r *Registry) RegisterDependency(dependent, dependsOn string) {
	canonical := r.CanonicalName(dependsOn)

	r.dependentsMu.Lock()
	set := r.dependents[canonical]
	if set == nil {
		set = newOrderedSet()
		r.dependents[canonical] = set
	}
	added := set.add(dependent)
	r.dependentsMu.Unlock()
	if !added {
		return
	}

	r.dependenciesMu.Lock()
	deps := r.dependencies[dependent]
	if deps == nil {
		deps = newOrderedSet()
		r.dependencies[dependent] = deps
	}
	deps.add(canonical)
	r.dependenciesMu.Unlock()
}

// RegisterContainment records that the outer bean contains the inner bean
// (e.g. an inner helper object owned by a composite). Containment implies a
// dependency edge: the outer bean is destroyed before the inner one, and
// destroying the outer bean cascades to the inner one.
func (r *Registry) RegisterContainment(inner, outer string) {
	r.containedMu.Lock()
	set := r.contained[outer]
	if set == nil {
		set = newOrderedSet()
		r.contained[outer] = set
	}
	added := set.add(inner)
	r.containedMu.Unlock()
	if !added {
		return
	}
	r.RegisterDependency(outer, inner)
}

// ── Dependency queries ───────────────────────────────────────────────────────

// HasDependents reports whether any bean has been registered as depending on
// the given name.
func (r *Registry) HasDependents(name string) bool {
	r.dependentsMu.Lock()
	defer r.dependentsMu.Unlock()
	set, ok := r.dependents[r.CanonicalName(name)]
	return ok && !set.empty()
}

// DependentsOf returns the names of all beans registered as depending on the
// given bean.
func (r *Registry) DependentsOf(name string) []string {
	r.dependentsMu.Lock()
	defer r.dependentsMu.Unlock()
	set := r.dependents[r.CanonicalName(name)]
	if set == nil {
		return nil
	}
	return set.values()
}

// DependenciesOf returns the names of all beans the given bean was registered
// as depending on.
func (r *Registry) DependenciesOf(name string) []string {
	r.dependenciesMu.Lock()
	defer r.dependenciesMu.Unlock()
	set := r.dependencies[r.CanonicalName(name)]
	if set == nil {
		return nil
	}
	return set.values()
}

// IsDependent reports whether dependent depends on name, directly or through
// transitive dependency edges. Traversal carries a visited set, so
// pathological graph cycles terminate instead of recursing forever.
func (r *Registry) IsDependent(name, dependent string) bool {
	r.dependentsMu.Lock()
	defer r.dependentsMu.Unlock()
	return r.isDependentLocked(name, dependent, nil)
}

func (r *Registry) isDependentLocked(name, dependent string, seen map[string]struct{}) bool {
	if _, ok := seen[name]; ok {
		return false
	}
	canonical := r.CanonicalName(name)
	set := r.dependents[canonical]
	if set == nil || set.empty() {
		return false
	}
	if set.has(dependent) {
		return true
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	seen[name] = struct{}{}
	for _, transitive := range set.values() {
		if r.isDependentLocked(transitive, dependent, seen) {
			return true
		}
	}
	return false
}

// ── Destruction ──────────────────────────────────────────────────────────────

// Destroy destroys the named bean: its registered dependents first (depth
// first over the dependents graph), then its own disposable, then any
// contained beans, finally scrubbing the name out of the dependency graph
// and the instance stores. Destroying an unknown or already-destroyed name
// is a no-op.
func (r *Registry) Destroy(name string) {
	name = r.CanonicalName(name)
	r.destroySingleton(name, make(map[string]struct{}))
}

// DestroyAll destroys every registered disposable in reverse registration
// order, rejecting new singleton creation for the duration, then clears all
// stores. Late lookups during teardown still see the doomed instances;
// removal happens at the very end under the coordination lock.
func (r *Registry) DestroyAll() {
	r.log.Debug("destroying singletons", "count", r.Count())
	r.inDestruction.Store(true)

	r.dispMu.Lock()
	names := make([]string, len(r.dispOrder))
	copy(names, r.dispOrder)
	r.dispMu.Unlock()

	seen := make(map[string]struct{})
	for i := len(names) - 1; i >= 0; i-- {
		r.destroySingleton(names[i], seen)
	}

	r.containedMu.Lock()
	r.contained = make(map[string]*orderedSet)
	r.containedMu.Unlock()
	r.dependentsMu.Lock()
	r.dependents = make(map[string]*orderedSet)
	r.dependentsMu.Unlock()
	r.dependenciesMu.Lock()
	r.dependencies = make(map[string]*orderedSet)
	r.dependenciesMu.Unlock()

	r.lock.Lock()
	defer r.lock.Unlock()
	r.clearSingletonStores()
}

// RemoveAll clears every instance store without invoking disposables. Meant
// for forced resets; dependency edges registered speculatively survive.
func (r *Registry) RemoveAll() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.clearSingletonStores()
}

// clearSingletonStores empties the instance stores and resets the
// destruction flag. Callers hold the coordination lock.
func (r *Registry) clearSingletonStores() {
	clearSyncMap(&r.singletons)
	clearSyncMap(&r.factories)
	clearSyncMap(&r.early)
	r.clearRegistrations()
	r.inDestruction.Store(false)
}

// destroySingleton removes the disposable registered for the name and runs
// the destruction sequence. seen guards against re-entering a name already
// being destroyed in this cascade.
func (r *Registry) destroySingleton(name string, seen map[string]struct{}) {
	if _, ok := seen[name]; ok {
		return
	}
	seen[name] = struct{}{}

	r.dispMu.Lock()
	d := r.disposables[name]
	delete(r.disposables, name)
	for i, n := range r.dispOrder {
		if n == name {
			r.dispOrder = append(r.dispOrder[:i], r.dispOrder[i+1:]...)
			break
		}
	}
	r.dispMu.Unlock()

	r.destroyBean(name, d, seen)

	// During DestroyAll the instance stores are cleared at the very end, so
	// late retrieval during shutdown still works. For an individual
	// destruction, remove the instance now — after the destruction step, to
	// allow late retrieval by on-demand suppliers.
	if !r.inDestruction.Load() {
		r.lock.Lock()
		r.removeSingleton(name)
		r.lock.Unlock()
	}
}

// destroyBean destroys dependents of the bean before the bean itself, then
// cascades into contained beans and prunes the graph. Never propagates
// disposal failures.
func (r *Registry) destroyBean(name string, d Disposable, seen map[string]struct{}) {
	// Dependents first. The set is detached atomically so concurrent readers
	// never observe a partially destroyed edge set.
	r.dependentsMu.Lock()
	dependents := r.dependents[name]
	delete(r.dependents, name)
	r.dependentsMu.Unlock()
	if dependents != nil {
		r.log.Debug("destroying dependent beans", "name", name, "dependents", dependents.values())
		for _, dep := range dependents.values() {
			r.destroySingleton(dep, seen)
		}
	}

	if d != nil {
		if err := invokeDisposable(d); err != nil {
			r.log.Warn("destruction of bean threw an error", "name", name, "error", err)
		}
	}

	// Contained beans next.
	r.containedMu.Lock()
	contained := r.contained[name]
	delete(r.contained, name)
	r.containedMu.Unlock()
	if contained != nil {
		for _, inner := range contained.values() {
			r.destroySingleton(inner, seen)
		}
	}

	// Scrub the destroyed bean out of other beans' dependent sets.
	r.dependentsMu.Lock()
	for key, set := range r.dependents {
		set.remove(name)
		if set.empty() {
			delete(r.dependents, key)
		}
	}
	r.dependentsMu.Unlock()

	// Drop the destroyed bean's own recorded dependencies.
	r.dependenciesMu.Lock()
	delete(r.dependencies, name)
	r.dependenciesMu.Unlock()
}

// invokeDisposable runs a disposable, converting a panic into an error so a
// single misbehaving bean cannot abort teardown of its siblings.
func invokeDisposable(d Disposable) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during destroy: %v", rec)
		}
	}()
	return d.Destroy()
}

func clearSyncMap(m *sync.Map) {
	m.Range(func(k, _ any) bool {
		m.Delete(k)
		return true
	})
}

// ── orderedSet ───────────────────────────────────────────────────────────────

// orderedSet is a string set preserving insertion order, matching the
// iteration-order semantics the destruction algorithm relies on.
type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet) remove(v string) {
	if _, ok := s.index[v]; !ok {
		return
	}
	delete(s.index, v)
	for i, item := range s.items {
		if item == v {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet) empty() bool { return len(s.items) == 0 }

func (s *orderedSet) values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
