package container

import (
	"errors"
	"fmt"
	"strings"
)

// ── Sentinels ─────────────────────────────────────────────────────────────────

var (
	// ErrNotFound means no factory and no resolver can produce the id.
	ErrNotFound = errors.New("container: service not found")

	// ErrCreation means a registered factory failed.
	ErrCreation = errors.New("container: could not create service")

	// ErrInvalidDefinition means autowiring could not proceed.
	ErrInvalidDefinition = errors.New("container: invalid definition")

	// ErrDuplicateRegistration is returned when a factory (or catalog entry)
	// is registered twice for the same id.
	ErrDuplicateRegistration = errors.New("container: duplicate registration")

	// ErrCyclicDependency is returned when an id is requested while it is
	// already being resolved.
	ErrCyclicDependency = errors.New("container: cyclic dependency")

	ErrEmptyID    = errors.New("container: id cannot be empty")
	ErrNilFactory = errors.New("container: factory cannot be nil")
)

// ── Typed errors ──────────────────────────────────────────────────────────────

// NotFoundError reports an id that nothing in the container can produce.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("container: service %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CreationError wraps a failure raised by a registered factory.
type CreationError struct {
	ID  string
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("container: could not create service %q: %v", e.ID, e.Err)
}

func (e *CreationError) Is(target error) bool { return target == ErrCreation }
func (e *CreationError) Unwrap() error        { return e.Err }

// InvalidDefinitionError reports why autowiring failed. Err is nil when the
// failure originates in the resolver itself.
type InvalidDefinitionError struct {
	Reason string
	Err    error
}

func (e *InvalidDefinitionError) Error() string {
	if e.Err == nil {
		return "container: " + e.Reason
	}
	return fmt.Sprintf("container: %s: %v", e.Reason, e.Err)
}

func (e *InvalidDefinitionError) Is(target error) bool { return target == ErrInvalidDefinition }
func (e *InvalidDefinitionError) Unwrap() error        { return e.Err }

// DuplicateRegistrationError reports an attempt to overwrite a write-once
// definition.
type DuplicateRegistrationError struct {
	ID string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("container: %q is already registered and cannot be modified", e.ID)
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

// CyclicDependencyError carries the resolution chain that looped back.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return "container: cyclic dependency: " + strings.Join(e.Chain, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// ── Classification ────────────────────────────────────────────────────────────

// Classify returns the sentinel of the outermost container error in err's
// chain, or nil if err carries none. A factory that fails because a nested
// lookup was missing classifies as ErrCreation, not ErrNotFound.
func Classify(err error) error {
	for err != nil {
		switch err.(type) {
		case *NotFoundError:
			return ErrNotFound
		case *CreationError:
			return ErrCreation
		case *InvalidDefinitionError:
			return ErrInvalidDefinition
		case *DuplicateRegistrationError:
			return ErrDuplicateRegistration
		case *CyclicDependencyError:
			return ErrCyclicDependency
		}
		err = errors.Unwrap(err)
	}
	return nil
}

// IsNotFound reports whether err means "missing" rather than "broken".
func IsNotFound(err error) bool { return Classify(err) == ErrNotFound }

func invalidDefinition(err error, format string, args ...any) *InvalidDefinitionError {
	return &InvalidDefinitionError{Reason: fmt.Sprintf(format, args...), Err: err}
}
