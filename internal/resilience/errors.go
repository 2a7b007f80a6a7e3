package resilience

import "errors"

var (
	// ErrStorageUnavailable signals the circuit breaker is open; the record
	// was queued without touching storage.
	ErrStorageUnavailable = errors.New("storage unavailable, record queued")

	// ErrSaveQueued signals that all save attempts failed and the record was
	// moved to the pending queue for later reconciliation. The record is not
	// lost.
	ErrSaveQueued = errors.New("save failed, record queued for retry")

	// ErrInvalidBatch signals a batch containing more than one open record,
	// which would violate the single-open-activity invariant. Rejected
	// before any I/O.
	ErrInvalidBatch = errors.New("batch contains more than one open record")
)
