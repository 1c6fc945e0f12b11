package dicontainer

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrScopeDisposed is returned when resolving through a Scope that has already
// been disposed.
var ErrScopeDisposed = errors.New("dicontainer: scope already disposed")

// ── ConfigurationError ────────────────────────────────────────────────────────

// ConfigurationError reports an invalid registration: registering after the
// container is built, an instance descriptor with dependencies, conflicting
// construction strategies, and similar. The failing call is rejected without
// corrupting the registry.
type ConfigurationError struct {
	Key    ServiceKey // empty when the error is not tied to one registration
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("dicontainer: %s", e.Reason)
	}
	return fmt.Sprintf("dicontainer: [%s]: %s", e.Key, e.Reason)
}

// ── MissingDependencyError ────────────────────────────────────────────────────

// MissingDependencyError reports a required key with no registration.
// RequestedBy names the service whose dependency list referenced the key, or
// is empty when the key was requested directly by the caller.
type MissingDependencyError struct {
	Key         ServiceKey
	RequestedBy ServiceKey
}

func (e *MissingDependencyError) Error() string {
	if e.RequestedBy == "" {
		return fmt.Sprintf("dicontainer: no service registered for [%s]", e.Key)
	}
	return fmt.Sprintf("dicontainer: no service registered for [%s] (required by [%s])", e.Key, e.RequestedBy)
}

// ── CircularDependencyError ───────────────────────────────────────────────────

// CircularDependencyError reports a key that transitively depends on itself.
// Chain holds the dependency path in discovery order, from the first
// occurrence of the repeated key back to itself, e.g. [orders, repo, orders].
type CircularDependencyError struct {
	Chain []ServiceKey
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, k := range e.Chain {
		parts[i] = "[" + string(k) + "]"
	}
	return "dicontainer: circular dependency: " + strings.Join(parts, " -> ")
}

// ── ActivationError ───────────────────────────────────────────────────────────

// ActivationError wraps a failure raised by a service's factory. The original
// error is available through Unwrap.
type ActivationError struct {
	Key ServiceKey
	Err error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("dicontainer: activating [%s]: %v", e.Key, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// ── DisposalError ─────────────────────────────────────────────────────────────

// DisposalFailure is one disposable that failed during scope teardown, tagged
// with the key it was resolved under.
type DisposalFailure struct {
	Key ServiceKey
	Err error
}

// DisposalError aggregates every failure from one Dispose pass. Teardown
// continues past individual failures, so Failures may hold any subset of the
// scope's disposables.
type DisposalError struct {
	Failures []DisposalFailure
}

func (e *DisposalError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("[%s]: %v", f.Key, f.Err)
	}
	return fmt.Sprintf("dicontainer: disposing scope: %d failure(s): %s",
		len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes the combined failures so errors.Is and errors.As reach the
// individual causes.
func (e *DisposalError) Unwrap() error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return multierr.Combine(errs...)
}
