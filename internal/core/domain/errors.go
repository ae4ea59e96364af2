package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidLevel indicates an embedding was written to an index its
	// chunk's indexing level does not allow.
	ErrInvalidLevel = errors.New("invalid indexing level")

	// ErrUnknownStrategy indicates a retrieval or chunking strategy name
	// that is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrReadSource indicates the source file could not be read.
	ErrReadSource = errors.New("cannot read source")

	// ErrDocumentBusy indicates another writer holds the document.
	ErrDocumentBusy = errors.New("document is being modified")

	// Embedding Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingTransient indicates a failure that may succeed when retried
	// (timeouts, rate limits, 5xx responses).
	ErrEmbeddingTransient = errors.New("transient embedding failure")

	// ErrEmbeddingFatal indicates a failure that will not succeed on retry
	// (bad credentials, unknown model, malformed request).
	ErrEmbeddingFatal = errors.New("fatal embedding failure")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// TransientEmbeddingError wraps err so that it matches ErrEmbeddingTransient.
func TransientEmbeddingError(err error) error {
	return fmt.Errorf("%w: %w", ErrEmbeddingTransient, err)
}

// FatalEmbeddingError wraps err so that it matches ErrEmbeddingFatal.
func FatalEmbeddingError(err error) error {
	return fmt.Errorf("%w: %w", ErrEmbeddingFatal, err)
}

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingTransient)
}
