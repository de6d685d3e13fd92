package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means the host offers no persistent
	// storage. The app still boots, memory-only.
	ErrStorageUnavailable = errors.New("persistent storage unavailable")

	// ErrInvalidDocument rejects an import wholesale; nothing is
	// partially applied.
	ErrInvalidDocument = errors.New("invalid import document")

	// ErrNothingToExport refuses to produce an empty export file.
	ErrNothingToExport = errors.New("nothing to export")

	// ErrStoreLimit rejects adding a store past MaxStores.
	ErrStoreLimit = errors.New("store limit reached")

	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")
)

// TransactionError reports a failed storage transaction. The
// collection is left as it was before the transaction began, both on
// disk and in the cache.
type TransactionError struct {
	Collection string
	Op         string
	Err        error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s transaction failed (%s): %v", e.Collection, e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }
