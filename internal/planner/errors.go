package planner

import "errors"

var (
	// ErrNotFound means the group, membership or candidate does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyViolation means the operation is not allowed in the group's current state.
	ErrPolicyViolation = errors.New("operation rejected")

	// ErrValidation means the input is malformed.
	ErrValidation = errors.New("invalid input")

	// ErrExternalDependency means a pricing or region lookup failed. Retryable.
	ErrExternalDependency = errors.New("external dependency failure")

	// ErrConflict means a concurrent writer changed the group first. Retryable.
	ErrConflict = errors.New("concurrent modification")
)
