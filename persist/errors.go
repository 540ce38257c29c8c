package persist

import "errors"

var (
	// ErrSinkRequired is returned when no output sink is provided.
	ErrSinkRequired = errors.New("sink required")

	// ErrInvalidBatchSize is returned when the batch size is < 1.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
