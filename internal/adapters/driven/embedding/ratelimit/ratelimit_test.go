package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/logger"
)

// mockEmbedder fails the first failures calls with err.
type mockEmbedder struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    [][]string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, texts)
	if m.failures > 0 {
		m.failures--
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(m.calls)), float32(i)}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 2 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func TestEmbedBatch_SplitsRequests(t *testing.T) {
	inner := &mockEmbedder{}
	svc := New(inner, Config{MaxBatch: 2}, logger.Nop())

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, inner.calls)
	assert.Equal(t, []float32{3, 0}, vecs[4], "last text comes from the third request")

	vecs, err = svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbed_RetriesTransientFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inner := &mockEmbedder{failures: 2, err: domain.TransientEmbeddingError(errors.New("429"))}
	svc := New(inner, Config{Backoff: time.Millisecond}, logger.FromZap(zap.New(core)))

	vec, err := svc.Embed(context.Background(), "第1條")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
	assert.Len(t, inner.calls, 3)
	assert.Equal(t, 2, logs.FilterMessage("embedding request failed, backing off").Len())
}

func TestEmbed_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &mockEmbedder{failures: 10, err: domain.TransientEmbeddingError(errors.New("503"))}
	svc := New(inner, Config{Backoff: time.Millisecond, MaxRetries: 2}, logger.Nop())

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingTransient)
	assert.Len(t, inner.calls, 3)
}

func TestEmbed_FatalIsNotRetried(t *testing.T) {
	inner := &mockEmbedder{failures: 1, err: domain.FatalEmbeddingError(errors.New("401"))}
	svc := New(inner, Config{Backoff: time.Millisecond}, logger.Nop())

	_, err := svc.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFatal)
	assert.Len(t, inner.calls, 1)
}

func TestEmbed_RetriesDisabled(t *testing.T) {
	inner := &mockEmbedder{failures: 1, err: domain.TransientEmbeddingError(errors.New("timeout"))}
	svc := New(inner, Config{MaxRetries: -1}, logger.Nop())

	_, err := svc.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Len(t, inner.calls, 1)
}

func TestEmbed_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &mockEmbedder{failures: 10, err: domain.TransientEmbeddingError(errors.New("busy"))}
	svc := New(inner, Config{Backoff: time.Hour}, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Embed(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, inner.calls, 1)
}

func TestLimiter_Throttles(t *testing.T) {
	inner := &mockEmbedder{}
	svc := New(inner, Config{RequestsPerSecond: 20, Burst: 1}, logger.Nop())

	start := time.Now()
	for range 3 {
		_, err := svc.Embed(context.Background(), "x")
		require.NoError(t, err)
	}
	// Burst 1 at 20/s: the 2nd and 3rd calls each wait about 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPassthrough(t *testing.T) {
	svc := New(&mockEmbedder{}, Config{}, logger.Nop())
	assert.Equal(t, 2, svc.Dimensions())
	assert.Equal(t, "mock", svc.ModelName())
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
