package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural input errors
	ErrMissingColumn      = errors.New("missing column")
	ErrEmptyPartition     = errors.New("empty partition")
	ErrNoOverlap          = errors.New("no overlapping density windows")
	ErrUnsupportedIsotope = errors.New("unsupported isotope")
	ErrInvalidInput       = errors.New("invalid input")

	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

func NewEmptyPartitionError(side string) error {
	return fmt.Errorf("%w: no %s samples", ErrEmptyPartition, side)
}

func NewUnsupportedIsotopeError(isotope string) error {
	return fmt.Errorf("%w: %q (expected 13C or 18O)", ErrUnsupportedIsotope, isotope)
}

func NewInvalidInputError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, field, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDataError reports whether err describes a structural mismatch in the input tables
func IsDataError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrEmptyPartition) ||
		errors.Is(err, ErrNoOverlap) ||
		errors.Is(err, ErrUnsupportedIsotope)
}
