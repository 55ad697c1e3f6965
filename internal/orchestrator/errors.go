package orchestrator

import "errors"

// Kind classifies a failed flow step. Every error that crosses a component
// boundary carries exactly one kind; the controller exposes the kind to
// whatever layer renders user feedback.
type Kind string

const (
	// KindSubmission: signer rejection or network failure before the ledger
	// accepted the transaction. Not retried; the user must re-initiate.
	KindSubmission Kind = "submission"
	// KindFinalityTimeout: no finality observed within the deadline. The
	// outcome is unknown; the transaction must never be resubmitted.
	KindFinalityTimeout Kind = "finality_timeout"
	// KindTransactionReverted: the ledger confirmed execution failure. No
	// state advanced, so retrying the original user action is safe.
	KindTransactionReverted Kind = "transaction_reverted"
	// KindExpectedObjectMissing: the finalized effects did not contain
	// exactly one created object of the expected type. Protocol or version
	// mismatch between client and ledger program; fatal.
	KindExpectedObjectMissing Kind = "expected_object_missing"
	// KindBackendCorrelationFailed: the ledger advanced but the backend
	// projection did not. Partial failure; resync, don't redo.
	KindBackendCorrelationFailed Kind = "backend_correlation_failed"
	// KindOperationInProgress: a concurrent operation holds the session.
	// Rejected immediately, never queued.
	KindOperationInProgress Kind = "operation_in_progress"
)

// FlowError attaches a Kind to the underlying cause.
type FlowError struct {
	Kind Kind
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func NewFlowError(kind Kind, err error) *FlowError {
	return &FlowError{Kind: kind, Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
