package orders

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain errors for order requests.
var (
	// ErrIllegalTransition indicates the requested status cannot follow the current one.
	ErrIllegalTransition = errors.New("orders: illegal status transition")
	// ErrForbidden indicates the actor may not perform an otherwise legal action.
	ErrForbidden = errors.New("orders: forbidden")
	// ErrPermissionDenied indicates the store rejected a write under the caller's credentials.
	ErrPermissionDenied = errors.New("orders: permission denied by store")
	// ErrFallbackFailed indicates the privileged function also rejected the mutation.
	ErrFallbackFailed = errors.New("orders: privileged fallback failed")
	// ErrNotFound indicates the order does not exist or is not visible.
	ErrNotFound = errors.New("orders: order not found")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("orders: validation failed")
	// ErrTransient indicates a timeout or connectivity failure the caller may retry.
	ErrTransient = errors.New("orders: transient failure")
	// ErrNotPending indicates deletion of an order that already left pending.
	ErrNotPending = errors.New("orders: only pending orders can be deleted")
	// ErrDuplicate indicates a repeated idempotent submission.
	ErrDuplicate = errors.New("orders: duplicate submission")
)

// FallbackError wraps the failure returned by the privileged function.
// errors.Is matches both ErrFallbackFailed and the underlying cause.
type FallbackError struct {
	OrderID uuid.UUID
	Err     error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("orders: privileged fallback for %s failed: %v", e.OrderID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FallbackError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFallbackFailed.
func (e *FallbackError) Is(target error) bool {
	return target == ErrFallbackFailed
}
