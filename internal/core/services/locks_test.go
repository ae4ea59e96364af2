package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

func TestDocumentLocks_SerialisesSameDocument(t *testing.T) {
	locks := NewDocumentLocks()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(ctx, "law")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestDocumentLocks_DifferentDocumentsDoNotBlock(t *testing.T) {
	locks := NewDocumentLocks()
	ctx := context.Background()

	unlockA, err := locks.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locks.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestDocumentLocks_ContextCancelled(t *testing.T) {
	locks := NewDocumentLocks()

	unlock, err := locks.Lock(context.Background(), "law")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.Lock(ctx, "law")
	assert.ErrorIs(t, err, domain.ErrDocumentBusy)
	assert.ErrorIs(t, err, context.Canceled)

	unlock()
	unlock()

	again, err := locks.Lock(context.Background(), "law")
	require.NoError(t, err)
	again()
}
