package beans

import "sync"

// aliasRegistry maps alternative bean names onto canonical ones. Every
// name-keyed registry operation resolves through CanonicalName first, so
// dependency edges and lookups registered under an alias land on the same
// bean.
type aliasRegistry struct {
	aliasMu sync.RWMutex
	aliases map[string]string // alias → name
}

// RegisterAlias registers alias as an alternative name for name.
// Registering a name as its own alias removes any alias of that name.
// Conflicting and circular alias definitions are rejected.
func (r *aliasRegistry) RegisterAlias(name, alias string) error {
	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()

	if alias == name {
		delete(r.aliases, alias)
		return nil
	}
	if registered, ok := r.aliases[alias]; ok {
		if registered == name {
			return nil
		}
		return AliasError{Alias: alias, Name: name,
			Trail: "alias already registered for name " + registered}
	}
	if r.hasAliasLocked(alias, name) {
		return AliasError{Alias: alias, Name: name, Trail: "circular alias definition"}
	}
	if r.aliases == nil {
		r.aliases = make(map[string]string)
	}
	r.aliases[alias] = name
	return nil
}

// RemoveAlias removes the given alias, reporting whether it existed.
func (r *aliasRegistry) RemoveAlias(alias string) bool {
	r.aliasMu.Lock()
	defer r.aliasMu.Unlock()
	_, ok := r.aliases[alias]
	delete(r.aliases, alias)
	return ok
}

// IsAlias reports whether the given name is registered as an alias.
func (r *aliasRegistry) IsAlias(name string) bool {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()
	_, ok := r.aliases[name]
	return ok
}

// Aliases returns all aliases pointing at name, including transitive ones.
func (r *aliasRegistry) Aliases(name string) []string {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()
	var out []string
	r.collectAliasesLocked(name, &out)
	return out
}

func (r *aliasRegistry) collectAliasesLocked(name string, out *[]string) {
	for alias, registered := range r.aliases {
		if registered == name {
			*out = append(*out, alias)
			r.collectAliasesLocked(alias, out)
		}
	}
}

// CanonicalName follows the alias chain down to the canonical bean name.
func (r *aliasRegistry) CanonicalName(name string) string {
	r.aliasMu.RLock()
	defer r.aliasMu.RUnlock()
	canonical := name
	for {
		resolved, ok := r.aliases[canonical]
		if !ok {
			return canonical
		}
		canonical = resolved
	}
}

// hasAliasLocked reports whether name is, directly or transitively, an alias
// of the given alias — i.e. whether registering alias → name closes a cycle.
func (r *aliasRegistry) hasAliasLocked(name, alias string) bool {
	registered, ok := r.aliases[alias]
	if !ok {
		return false
	}
	if registered == name {
		return true
	}
	return r.hasAliasLocked(name, registered)
}
