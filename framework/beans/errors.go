package beans

import (
	"errors"
	"strconv"
)

// ErrIllegalState signals that registry state implies the requested singleton
// already exists. A factory may return it (or wrap it) when it detects,
// mid-construction, that the bean it was asked to build has been registered
// through another path. GetOrCreate recovers silently when the instance is
// indeed present and re-raises otherwise.
var ErrIllegalState = errors.New("beans: registry state implies existing singleton")

// DuplicateSingletonError is returned when a finished instance is registered
// under a name that already has one. The registry is left unchanged.
type DuplicateSingletonError struct{ Name string }

// Error implements the error interface.
func (e DuplicateSingletonError) Error() string {
	// Example: beans: singleton "db" already registered
	return "beans: singleton " + strconv.Quote(e.Name) + " already registered"
}

// CurrentlyInCreationError is returned on reentrant creation of a name that
// is already mid-construction and has no early-reference support — an
// unresolvable dependency cycle.
type CurrentlyInCreationError struct{ Name string }

// Error implements the error interface.
func (e CurrentlyInCreationError) Error() string {
	// Example: beans: bean "a" is currently in creation (unresolvable circular reference?)
	return "beans: bean " + strconv.Quote(e.Name) +
		" is currently in creation (unresolvable circular reference?)"
}

// CreationNotAllowedError is returned for any creation attempted while the
// registry is destroying its singletons. Never retried internally.
type CreationNotAllowedError struct{ Name string }

// Error implements the error interface.
func (e CreationNotAllowedError) Error() string {
	return "beans: singleton " + strconv.Quote(e.Name) +
		" creation not allowed while singletons are in destruction" +
		" (do not request a bean from inside a destroy callback)"
}

// CreationError wraps a factory failure. Related holds secondary errors
// suppressed during the same creation attempt (circular-reference resolution
// fallout), capped at the registry's suppression limit.
type CreationError struct {
	Name    string
	Err     error
	Related []error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	return "beans: error creating singleton " + strconv.Quote(e.Name) + ": " + e.Err.Error()
}

// Unwrap exposes the factory's own error to errors.Is / errors.As.
func (e *CreationError) Unwrap() error { return e.Err }

// RelatedCauses returns the suppressed secondary errors attached to this
// failure, in the order they were recorded.
func (e *CreationError) RelatedCauses() []error { return e.Related }

// AliasError is returned for invalid alias registrations: self-reference
// chains, conflicts with an existing alias, or a circular alias definition.
type AliasError struct {
	Alias string
	Name  string
	Trail string
}

// Error implements the error interface.
func (e AliasError) Error() string {
	msg := "beans: cannot register alias " + strconv.Quote(e.Alias) +
		" for name " + strconv.Quote(e.Name)
	if e.Trail != "" {
		msg += ": " + e.Trail
	}
	return msg
}
