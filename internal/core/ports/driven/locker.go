package driven

import (
	"context"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// DocumentLocker serialises writers of the same document. Writers of
// different documents never block each other.
type DocumentLocker interface {
	// Lock blocks until the document is free or ctx is done, and returns
	// the function that releases it.
	Lock(ctx context.Context, id domain.DocumentID) (unlock func(), err error)
}
