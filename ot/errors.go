package ot

import (
	"errors"
	"fmt"
)

var (
	// ErrContractViolation marks a broken precondition. It is carried by a
	// panic and never returned.
	ErrContractViolation = errors.New("ot: contract violation")
	// ErrTransformFailure is returned by domains that cannot merge two
	// concurrent edits automatically.
	ErrTransformFailure = errors.New("ot: no automatic merge")
)

// Require panics with an ErrContractViolation when cond is false.
func Require(cond bool, op string, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("%w: %s: %s", ErrContractViolation, op, fmt.Sprintf(format, args...)))
	}
}

func TransformFailure(domain string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrTransformFailure, domain, fmt.Sprintf(format, args...))
}

// Violation extracts the contract violation carried by a recovered panic value.
func Violation(recovered any) (error, bool) {
	err, ok := recovered.(error)
	if !ok || !errors.Is(err, ErrContractViolation) {
		return nil, false
	}
	return err, true
}
