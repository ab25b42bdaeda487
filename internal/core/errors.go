// Package core defines core data structures and sentinel errors.
package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Extension errors
	ErrExtensionNotFound = errors.New("strix: extension not found")
	ErrExtensionInit     = errors.New("strix: extension init failed")

	// Interface handle errors
	ErrHandleNotFound = errors.New("strix: interface handle not found")

	// ErrCaptureStopped is returned by a handle when the stop predicate
	// halted the read. It signals loop exit, not a failure.
	ErrCaptureStopped = errors.New("strix: capture stopped")

	// Manager errors
	ErrNoInterface     = errors.New("strix: no interface set")
	ErrManagerState    = errors.New("strix: invalid manager state")
	ErrShutdownTimeout = errors.New("strix: shutdown timed out")

	// Configuration errors
	ErrConfigInvalid = errors.New("strix: invalid configuration")
)

// NewExtensionNotFoundError reports an identifier with no registered factory.
func NewExtensionNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
}

// NewExtensionInitError reports a failed extension constructor.
func NewExtensionInitError(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrExtensionInit, name, err)
}

// NewHandleNotFoundError reports an unknown interface handle kind.
func NewHandleNotFoundError(kind string) error {
	return fmt.Errorf("%w: %s", ErrHandleNotFound, kind)
}

// NewShutdownTimeoutError reports the loops that did not stop within the
// join deadline.
func NewShutdownTimeoutError(pending []string) error {
	return fmt.Errorf("%w: %s still running", ErrShutdownTimeout, strings.Join(pending, ", "))
}
