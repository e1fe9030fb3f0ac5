package ripple

import (
	"errors"
	"fmt"
)

// ErrCycleDetected is the reason carried by a CycleError when a computed's
// derive function, directly or through other computeds, reads the computed
// itself.
var ErrCycleDetected = errors.New("ripple: cyclic dependency detected")

// ErrWriteInDerive is the reason carried by a CycleError when a signal is
// written while a computed derive is running on the same goroutine. Derive
// functions must be pure; a write from inside one is a cycle in the making.
var ErrWriteInDerive = errors.New("ripple: signal write inside computed derive")

// ErrBudgetExceeded is the reason carried by a CycleError when a single
// flush exceeds its effect-run budget. This happens when effects keep
// writing signals that re-dirty effects in the same flush, so the queue
// never reaches a fixed point. See SetFlushBudget.
var ErrBudgetExceeded = errors.New("ripple: flush budget exceeded")

// CycleError is the panic value raised for fatal dependency-graph
// violations. It satisfies errors.Is against the sentinel carried in Reason.
//
// A CycleError aborts the current flush; effects that already ran in that
// flush stay applied.
type CycleError struct {
	// NodeID is the cell, computed, or effect at the center of the cycle.
	NodeID uint64

	// NodeName is the node's diagnostic name, when one was configured.
	NodeName string

	// Reason is ErrCycleDetected, ErrWriteInDerive, or ErrBudgetExceeded.
	Reason error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	if e.NodeName != "" {
		return fmt.Sprintf("%v (node %d %q)", e.Reason, e.NodeID, e.NodeName)
	}
	return fmt.Sprintf("%v (node %d)", e.Reason, e.NodeID)
}

// Unwrap returns the sentinel reason for errors.Is/As support.
func (e *CycleError) Unwrap() error {
	return e.Reason
}

// panicError normalizes a recovered panic value into an error for delivery
// to scope error handlers.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("ripple: effect panic: %v", r)
}
