package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks operations against a missing document, index or
	// alias. Callers treat it as benign where the intent was removal.
	ErrNotFound = errors.New("not found")

	// ErrUnreachable marks total engine unavailability (no nodes, no
	// transport). It trips the reindex backlog's circuit breaker.
	ErrUnreachable = errors.New("search engine unreachable")
)

// IsNotFound reports whether err is a missing-target failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnreachable reports whether err signals total engine unavailability.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

func notFound(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrNotFound)
}
