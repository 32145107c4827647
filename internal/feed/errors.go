package feed

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers classify with errors.Is
// and map kinds to transport-level responses.
var (
	// ErrInvalidArgument indicates a precondition failure: non-positive
	// cap, missing location, or non-positive radius. Always raised
	// before any dependency call is issued.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDependencyFailure indicates that candidate retrieval, one of
	// the signal fetches, or the profile lookup failed. The whole
	// operation aborts; a feed scored with partial signals is never
	// returned.
	ErrDependencyFailure = errors.New("dependency failure")
)

// invalidArgf wraps ErrInvalidArgument with a formatted detail message.
func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// dependencyErr wraps an underlying fetch error with ErrDependencyFailure,
// naming the dependency that failed.
func dependencyErr(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependencyFailure, name, err)
}
