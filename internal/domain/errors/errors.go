package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyEscalated guards records handed to the fallback supplier:
	// primary submission is forbidden forever after.
	ErrAlreadyEscalated = errors.New("already escalated; primary submission forbidden")

	// ErrAlreadySubmitted is the idempotency no-op: the supplier order already
	// exists. Callers treat it as success, not failure.
	ErrAlreadySubmitted = errors.New("supplier order already exists")

	// ErrNegativeProfitBlocked means the supplier quote exceeded the captured
	// sale price. Non-retryable against the same supplier.
	ErrNegativeProfitBlocked = errors.New("supplier cost exceeds sale price")

	ErrMissingSupplierMapping = errors.New("no supplier mapping")
	ErrLockHeld               = errors.New("record locked by another worker")
)

// SupplierCallError wraps a failed call to an external supplier or the
// storefront. It is the only retryable failure kind.
type SupplierCallError struct {
	Op  string
	Err error
}

func (e SupplierCallError) Error() string {
	return fmt.Sprintf("supplier call %s failed: %v", e.Op, e.Err)
}

func (e SupplierCallError) Unwrap() error {
	return e.Err
}

// Retryable reports whether err may legitimately increment the retry counter.
func Retryable(err error) bool {
	var callErr SupplierCallError
	return errors.As(err, &callErr)
}
