package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Strategy answers a query whose embedding is already computed.
type Strategy interface {
	// Name is the registry key of the strategy.
	Name() string

	// Retrieve returns up to k results ordered by descending score.
	// An empty documentID searches every document.
	Retrieve(ctx context.Context, query []float32, k int, documentID domain.DocumentID) ([]domain.RetrievalResult, error)
}

// ==================== Summary First ====================

// SummaryFirstStrategy searches the summary index, then expands each hit
// into the best scoring detail nodes up to two levels below it.
type SummaryFirstStrategy struct {
	store            driven.HierarchyStore
	vectors          driven.VectorIndex
	summaryK         int
	detailPerSummary int
	log              *logger.Logger
}

// NewSummaryFirstStrategy creates the two-phase strategy.
func NewSummaryFirstStrategy(
	store driven.HierarchyStore,
	vectors driven.VectorIndex,
	summaryK, detailPerSummary int,
	log *logger.Logger,
) *SummaryFirstStrategy {
	if summaryK <= 0 {
		summaryK = 3
	}
	if detailPerSummary <= 0 {
		detailPerSummary = 2
	}
	return &SummaryFirstStrategy{
		store:            store,
		vectors:          vectors,
		summaryK:         summaryK,
		detailPerSummary: detailPerSummary,
		log:              log,
	}
}

// Name returns domain.StrategySummaryFirst.
func (s *SummaryFirstStrategy) Name() string {
	return domain.StrategySummaryFirst
}

// scored is a chunk with its similarity to the query.
type scored struct {
	chunk domain.Chunk
	score float64
}

// Retrieve runs both phases.
// A summary without qualifying details stands in for itself with score 0.0,
// since it was never compared with the query at the detail level.
func (s *SummaryFirstStrategy) Retrieve(
	ctx context.Context,
	query []float32,
	k int,
	documentID domain.DocumentID,
) ([]domain.RetrievalResult, error) {
	// 1. PHASE ONE: SUMMARY SEARCH
	hits, err := s.vectors.SimilaritySearch(ctx, query, domain.IndexingLevelSummary, s.summaryK, documentID)
	if err != nil {
		return nil, fmt.Errorf("searching summaries: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	// 2. RESOLVE SUMMARIES
	summaries := make([]*domain.Chunk, 0, len(hits))
	for _, hit := range hits {
		c, err := s.store.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("summary hit without chunk", "chunk", hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading summary %s: %w", hit.ChunkID, err)
		}
		summaries = append(summaries, c)
	}

	// 3. PHASE TWO: EXPAND EACH SUMMARY CONCURRENTLY
	expanded := make([][]scored, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	for i, summary := range summaries {
		g.Go(func() error {
			details, err := s.expand(gctx, query, summary)
			if err != nil {
				return err
			}
			expanded[i] = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 4. DEDUPLICATE, FIRST OCCURRENCE WINS
	seen := make(map[domain.ChunkID]bool)
	var picked []scored //nolint:prealloc // size unknown until dedup
	for _, details := range expanded {
		for _, d := range details {
			if seen[d.chunk.ID] {
				continue
			}
			seen[d.chunk.ID] = true
			picked = append(picked, d)
		}
	}

	// 5. ASSEMBLE CONTEXT
	results := make([]domain.RetrievalResult, 0, len(picked))
	for _, p := range picked {
		r, err := buildResult(ctx, s.store, p.chunk, p.score, 0)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	return rank(results, k), nil
}

// expand returns the best detail nodes among the children and
// grandchildren of summary, or summary itself when there are none.
func (s *SummaryFirstStrategy) expand(ctx context.Context, query []float32, summary *domain.Chunk) ([]scored, error) {
	children, err := s.store.GetChildren(ctx, summary.ID)
	if err != nil {
		return nil, fmt.Errorf("loading children of %s: %w", summary.ID, err)
	}

	var candidates []domain.Chunk
	for _, child := range children {
		if child.Level.InDetailIndex() {
			candidates = append(candidates, child)
		}
		grandchildren, err := s.store.GetChildren(ctx, child.ID)
		if err != nil {
			return nil, fmt.Errorf("loading children of %s: %w", child.ID, err)
		}
		for _, gc := range grandchildren {
			if gc.Level.InDetailIndex() {
				candidates = append(candidates, gc)
			}
		}
	}

	if len(candidates) == 0 {
		return []scored{{chunk: *summary, score: 0}}, nil
	}

	details := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		vec, err := s.vectors.GetEmbedding(ctx, c.ID, domain.IndexingLevelDetail)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("detail chunk has no embedding", "chunk", c.ID)
			details = append(details, scored{chunk: c})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading embedding of %s: %w", c.ID, err)
		}
		details = append(details, scored{chunk: c, score: domain.CosineSimilarity(query, vec)})
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].score > details[j].score
	})
	if len(details) > s.detailPerSummary {
		details = details[:s.detailPerSummary]
	}
	return details, nil
}

// ==================== Direct ====================

// DirectStrategy searches the detail index only and adds a bounded
// ancestor chain and the siblings of each hit.
type DirectStrategy struct {
	store          driven.HierarchyStore
	vectors        driven.VectorIndex
	maxParentDepth int
	log            *logger.Logger
}

// NewDirectStrategy creates the single-phase strategy.
func NewDirectStrategy(
	store driven.HierarchyStore,
	vectors driven.VectorIndex,
	maxParentDepth int,
	log *logger.Logger,
) *DirectStrategy {
	return &DirectStrategy{
		store:          store,
		vectors:        vectors,
		maxParentDepth: maxParentDepth,
		log:            log,
	}
}

// Name returns domain.StrategyDirect.
func (s *DirectStrategy) Name() string {
	return domain.StrategyDirect
}

// Retrieve searches the detail index for k hits.
func (s *DirectStrategy) Retrieve(
	ctx context.Context,
	query []float32,
	k int,
	documentID domain.DocumentID,
) ([]domain.RetrievalResult, error) {
	hits, err := s.vectors.SimilaritySearch(ctx, query, domain.IndexingLevelDetail, k, documentID)
	if err != nil {
		return nil, fmt.Errorf("searching details: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		c, err := s.store.GetChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("detail hit without chunk", "chunk", hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading detail %s: %w", hit.ChunkID, err)
		}
		r, err := buildResult(ctx, s.store, *c, hit.Similarity, s.maxParentDepth)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return rank(results, k), nil
}

// ==================== Context Assembly ====================

// buildResult gathers the ancestors, children and siblings of c.
// maxAncestorDepth of 0 or less returns the full chain.
func buildResult(
	ctx context.Context,
	store driven.HierarchyStore,
	c domain.Chunk,
	score float64,
	maxAncestorDepth int,
) (*domain.RetrievalResult, error) {
	ancestors, err := store.GetAncestors(ctx, c.ID, maxAncestorDepth)
	if err != nil {
		return nil, fmt.Errorf("loading ancestors of %s: %w", c.ID, err)
	}
	children, err := store.GetChildren(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("loading children of %s: %w", c.ID, err)
	}

	var siblings []domain.Chunk
	if c.HasParent() {
		all, err := store.GetChildren(ctx, c.ParentID)
		if err != nil {
			return nil, fmt.Errorf("loading siblings of %s: %w", c.ID, err)
		}
		siblings = slices.DeleteFunc(all, func(s domain.Chunk) bool { return s.ID == c.ID })
	}

	return &domain.RetrievalResult{
		Chunk:     c,
		Score:     score,
		Ancestors: ancestors,
		Children:  children,
		Siblings:  siblings,
	}, nil
}

// rank orders results by descending score, keeping input order for ties,
// and keeps the first k.
func rank(results []domain.RetrievalResult, k int) []domain.RetrievalResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// ==================== Service ====================

// RetrievalConfig holds query defaults.
type RetrievalConfig struct {
	// DefaultStrategy is used when a query names none.
	DefaultStrategy string

	// K is the default number of results.
	K int

	// ContentMaxLength truncates passage content; 0 disables truncation.
	ContentMaxLength int
}

// RetrievalService embeds queries and dispatches them to a named strategy.
type RetrievalService struct {
	embedder   driven.EmbeddingService
	mu         sync.RWMutex
	strategies map[string]Strategy
	config     RetrievalConfig
	log        *logger.Logger
}

// NewRetrievalService creates a retrieval service with the given strategies.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	config RetrievalConfig,
	log *logger.Logger,
	strategies ...Strategy,
) *RetrievalService {
	if config.DefaultStrategy == "" {
		config.DefaultStrategy = domain.StrategySummaryFirst
	}
	if config.K <= 0 {
		config.K = 5
	}
	s := &RetrievalService{
		embedder:   embedder,
		strategies: make(map[string]Strategy, len(strategies)),
		config:     config,
		log:        log.Named("retrieve"),
	}
	for _, st := range strategies {
		s.Register(st)
	}
	return s
}

// NewRetrievalServiceFromSettings wires both built-in strategies.
func NewRetrievalServiceFromSettings(
	settings *domain.AppSettings,
	store driven.HierarchyStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	log *logger.Logger,
) *RetrievalService {
	r := settings.Retrieval
	return NewRetrievalService(embedder,
		RetrievalConfig{DefaultStrategy: r.Strategy, K: r.K, ContentMaxLength: r.ContentMaxLength},
		log,
		NewSummaryFirstStrategy(store, vectors, r.SummaryK, r.DetailPerSummary, log.Named("summary_first")),
		NewDirectStrategy(store, vectors, r.MaxParentDepth, log.Named("direct")),
	)
}

// Register adds or replaces a strategy under its name.
func (s *RetrievalService) Register(st Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[st.Name()] = st
}

// Strategies lists the registered strategy names in sorted order.
func (s *RetrievalService) Strategies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RetrieveResults embeds the query once and runs the selected strategy.
// An empty result is not an error.
func (s *RetrievalService) RetrieveResults(
	ctx context.Context,
	query string,
	opts driving.RetrieveOptions,
) ([]domain.RetrievalResult, error) {
	name := opts.Strategy
	if name == "" {
		name = s.config.DefaultStrategy
	}
	s.mu.RLock()
	strategy, ok := s.strategies[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, name)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	k := opts.K
	if k <= 0 {
		k = s.config.K
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := strategy.Retrieve(ctx, vec, k, opts.DocumentID)
	if err != nil {
		return nil, err
	}
	s.log.Debug("retrieved", "strategy", name, "k", k, "document", opts.DocumentID, "results", len(results))
	return results, nil
}

// Retrieve returns passages rendered for a language model.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts driving.RetrieveOptions) ([]domain.Passage, error) {
	results, err := s.RetrieveResults(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	maxLength := opts.ContentMaxLength
	if maxLength <= 0 {
		maxLength = s.config.ContentMaxLength
	}
	passages := make([]domain.Passage, 0, len(results))
	for i := range results {
		passages = append(passages, domain.NewPassage(&results[i], maxLength))
	}
	return passages, nil
}
