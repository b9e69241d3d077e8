package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCustomer means the submission carried no customer reference.
	ErrInvalidCustomer = errors.New("no customer selected")

	// ErrEmptyOrder means the submission had no usable lines.
	ErrEmptyOrder = errors.New("sale has no items")
)

// LineQuantityError rejects a line with quantity <= 0 under the strict
// validation policy.
type LineQuantityError struct {
	Index    int
	Quantity int
}

func (e *LineQuantityError) Error() string {
	return fmt.Sprintf("line %d has non-positive quantity %d", e.Index, e.Quantity)
}

// PersistenceError wraps a storage fault that occurred during commit. By the
// time the caller sees it, every effect of the attempt has been rolled back;
// resubmitting is safe.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("sale could not be persisted: %v", e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
