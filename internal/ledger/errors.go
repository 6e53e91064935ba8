package ledger

import "errors"

var (
	// ErrEmptyBatch is returned when a bulk merge is invoked with zero
	// incoming transactions. Single-transaction adds never produce it.
	ErrEmptyBatch = errors.New("empty transaction batch")

	// ErrTransactionNotFound is returned by update/delete operations
	// referencing an id absent from the ledger.
	ErrTransactionNotFound = errors.New("transaction not found")
)
