package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Pipeline errors wrap one of these sentinels so callers can
// classify them with errors.Is and pick the right user-facing message.
var (
	// ErrInvalidArgument marks caller errors. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProviderUnavailable marks transient provider failures that persisted
	// through the retry budget.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrDimensionMismatch marks a configuration error: an embedding whose
	// dimensionality differs from what the store was initialized with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedFormat marks a document whose bytes could not be
	// converted to text.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// PartialIngestionError reports an ingestion that stored some chunks before a
// batch failed. Stored and Failed hold chunk indices; a caller may retry just
// the failed subset.
type PartialIngestionError struct {
	SourceID string
	Stored   []int
	Failed   []int
	Cause    error
}

func (e *PartialIngestionError) Error() string {
	return fmt.Sprintf("partial ingestion of %q: %d chunks stored, %d failed: %v",
		e.SourceID, len(e.Stored), len(e.Failed), e.Cause)
}

func (e *PartialIngestionError) Unwrap() error {
	return e.Cause
}
