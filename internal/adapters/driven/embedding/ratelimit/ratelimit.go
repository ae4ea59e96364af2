// Package ratelimit wraps an EmbeddingService with a token-bucket limiter,
// request splitting and retry of transient failures.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults for Config fields left zero.
const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 2 * time.Second
	MaxBackoff        = 60 * time.Second
)

// Config holds the limiter settings.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less
	// disables throttling but keeps retries.
	RequestsPerSecond float64

	// Burst is the maximum number of requests sent at once (minimum 1).
	Burst int

	// MaxBatch splits EmbedBatch calls into requests of at most this many
	// texts. Zero sends each call as one request.
	MaxBatch int

	// MaxRetries is how often a transient failure is retried (0 = default).
	// Negative disables retries.
	MaxRetries int

	// Backoff is the first retry delay; it doubles per attempt up to MaxBackoff.
	Backoff time.Duration
}

// EmbeddingService throttles and retries calls to an inner service.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
	config  Config
	log     *logger.Logger

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps inner.
func New(inner driven.EmbeddingService, cfg Config, log *logger.Logger) *EmbeddingService {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &EmbeddingService{
		inner:   inner,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		config:  cfg,
		log:     log.Named("ratelimit"),
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := s.do(ctx, func() error {
		var err error
		vec, err = s.inner.Embed(ctx, text)
		return err
	})
	return vec, err
}

// EmbedBatch generates embeddings in input order, splitting into
// requests of at most MaxBatch texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	size := s.config.MaxBatch
	if size <= 0 || size > len(texts) {
		size = len(texts)
	}
	if size == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		part := texts[start:min(start+size, len(texts))]
		var vecs [][]float32
		err := s.do(ctx, func() error {
			var err error
			vecs, err = s.inner.EmbedBatch(ctx, part)
			return err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// do runs call under the limiter, retrying transient failures.
func (s *EmbeddingService) do(ctx context.Context, call func() error) error {
	backoff := s.config.Backoff
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}

		err := call()
		if err == nil || !domain.IsRetryable(err) || attempt >= s.config.MaxRetries {
			return err
		}

		s.log.Warn("embedding request failed, backing off",
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		s.recordFailure(backoff)
		backoff = min(backoff*2, MaxBackoff)
	}
}

// wait blocks until the backoff period has passed and a token is available.
func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if delay := time.Until(retryAt); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

// recordFailure pauses every caller sharing this limiter.
func (s *EmbeddingService) recordFailure(backoff time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if at := time.Now().Add(backoff); at.After(s.retryAt) {
		s.retryAt = at
	}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the inner service without consuming a token.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the inner service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}
