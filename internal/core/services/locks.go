package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
)

// Ensure DocumentLocks implements the interface.
var _ driven.DocumentLocker = (*DocumentLocks)(nil)

// DocumentLocks is an in-process keyed mutex over document IDs.
// It serialises the multi-step indexing pipeline of one document within
// this process.
type DocumentLocks struct {
	mu   sync.Mutex
	held map[domain.DocumentID]chan struct{}
}

// NewDocumentLocks creates an empty lock table.
func NewDocumentLocks() *DocumentLocks {
	return &DocumentLocks{held: make(map[domain.DocumentID]chan struct{})}
}

// Lock blocks until id is free or ctx is done.
func (l *DocumentLocks) Lock(ctx context.Context, id domain.DocumentID) (func(), error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[id]
		if !busy {
			done := make(chan struct{})
			l.held[id] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, id)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrDocumentBusy, id, ctx.Err())
		}
	}
}
