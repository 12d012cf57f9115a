package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers blank user ids, missing files and unsupported
	// extensions. Rejected at the boundary, never scheduled.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamModel marks a failure of the external vision/chat service.
	// Fatal for the current document run, never retried.
	ErrUpstreamModel = errors.New("upstream model failure")
	// ErrStorage marks filesystem or ledger I/O failures.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound marks lookups for unknown users, documents or ledger rows.
	ErrNotFound = errors.New("not found")
	// ErrTemporary marks transient infrastructure failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
