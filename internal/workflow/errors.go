package workflow

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for conversation handling
var (
	// ErrUnrecognizedInput means the inbound payload could not be
	// classified as exactly one request kind, or a confirmation text
	// matched no known selection token. The router never guesses a
	// default route for such input.
	ErrUnrecognizedInput = errors.New("unrecognized conversation input")

	// ErrNoProposal means a confirmation arrived with no pending
	// proposal for the customer.
	ErrNoProposal = errors.New("no pending proposal for customer")

	// ErrProposalExpired means the pending proposal outlived its TTL
	// and can no longer be confirmed against current stock data.
	ErrProposalExpired = errors.New("pending proposal has expired")
)

// ExtractionError means the grocery-list image was unreadable or yielded
// no items. It is always surfaced; an unreadable image never turns into
// an empty-but-successful list.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("image extraction failed: %s", e.Reason)
}

// TotalMismatchError means a confirmed total disagrees with the sum of
// line subtotals beyond tolerance. The order is rejected before any
// persistence call.
type TotalMismatchError struct {
	Submitted float64
	Computed  float64
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("order total %.2f does not match line subtotal sum %.2f", e.Submitted, e.Computed)
}

// PersistenceError means the order store rejected a write. It is
// surfaced verbatim; a failed write is never masked with a synthetic
// order id.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
