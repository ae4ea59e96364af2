package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/core/ports/driving"
	"github.com/custodia-labs/hierag/internal/logger"
	"github.com/custodia-labs/hierag/internal/normalisers"
	"github.com/custodia-labs/hierag/internal/postprocessors/chunker"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexConfig tunes the indexing pipeline.
type IndexConfig struct {
	// BatchSize is how many chunk texts go into one embedding request.
	BatchSize int

	// Extensions lists the file suffixes IndexDirectory picks up.
	Extensions []string

	// Concurrency is the default number of documents indexed at once.
	Concurrency int
}

// IndexConfigFromSettings extracts the indexing configuration.
func IndexConfigFromSettings(s *domain.AppSettings) IndexConfig {
	return IndexConfig{
		BatchSize:   s.Embedding.BatchSize,
		Extensions:  s.Index.Extensions,
		Concurrency: s.Index.Concurrency,
	}
}

// IndexService turns source files into persisted chunk trees with embeddings.
type IndexService struct {
	reader   driven.SourceReader
	store    driven.HierarchyStore
	vectors  driven.VectorIndex
	embedder driven.EmbeddingService
	locker   driven.DocumentLocker
	watcher  driven.SourceWatcher
	chunker  *chunker.Chunker
	config   IndexConfig
	log      *logger.Logger
}

// NewIndexService creates an indexing service.
// A nil locker falls back to an in-process DocumentLocks.
// embedder may be nil, in which case every index call fails with
// domain.ErrEmbeddingUnavailable before anything is written.
func NewIndexService(
	reader driven.SourceReader,
	store driven.HierarchyStore,
	vectors driven.VectorIndex,
	embedder driven.EmbeddingService,
	locker driven.DocumentLocker,
	chk *chunker.Chunker,
	config IndexConfig,
	log *logger.Logger,
) *IndexService {
	if locker == nil {
		locker = NewDocumentLocks()
	}
	if chk == nil {
		chk = chunker.New(chunker.WithLogger(log))
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 8
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &IndexService{
		reader:   reader,
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		locker:   locker,
		chunker:  chk,
		config:   config,
		log:      log.Named("index"),
	}
}

// IndexDocument chunks, persists and embeds one source file.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IndexService) IndexDocument(ctx context.Context, path string, opts driving.IndexOptions) (*driving.IndexResult, error) {
	start := time.Now()

	// 1. CHECK PRECONDITIONS
	if s.embedder == nil {
		return nil, fmt.Errorf("indexing %s: %w", path, domain.ErrEmbeddingUnavailable)
	}
	docID, err := domain.DocumentIDFromFilename(path)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	sourceFile := filepath.Base(path)

	var strategy chunker.Strategy
	if opts.Strategy != "" {
		strategy = chunker.Strategy(opts.Strategy)
		if !strategy.IsValid() {
			return nil, fmt.Errorf("%w: chunking strategy %q", domain.ErrUnknownStrategy, opts.Strategy)
		}
	}

	// 2. READ SOURCE
	raw, err := s.reader.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	content := string(raw)
	if !utf8.ValidString(content) {
		s.log.Warn("source is not valid UTF-8, replacing invalid bytes", "path", path)
		content = strings.ToValidUTF8(content, "\uFFFD")
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, path)
	}

	// 3. LOCK DOCUMENT
	unlock, err := s.locker.Lock(ctx, docID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 4. CHECK EXISTING
	existing, err := s.store.GetDocument(ctx, docID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("loading document %s: %w", docID, err)
	}
	if existing != nil {
		if existing.SourceFile != sourceFile && !opts.Force {
			return nil, fmt.Errorf("%w: document %s already indexed from %s",
				domain.ErrInvalidInput, docID, existing.SourceFile)
		}
		if !opts.Force && existing.ChunkCount > 0 {
			s.log.Debug("document already indexed", "document", docID)
			return &driving.IndexResult{
				Path:     path,
				Document: *existing,
				Skipped:  true,
				Strategy: existing.Metadata[domain.MetaStrategy],
				Duration: time.Since(start),
			}, nil
		}
		if err := s.purge(ctx, docID); err != nil {
			return nil, err
		}
	}

	// 5. BUILD TREE
	var tree *chunker.Tree
	if strategy != "" {
		tree, err = s.chunker.ChunkWith(strategy, content)
		if err != nil {
			return nil, err
		}
	} else {
		tree = s.chunker.Chunk(content, sourceFile)
	}
	chunks := tree.Flatten(docID, sourceFile)

	doc := &domain.Document{
		ID:            docID,
		Title:         normalisers.Title(sourceFile, content),
		SourceFile:    sourceFile,
		Category:      opts.Category,
		Version:       opts.Version,
		EffectiveDate: opts.EffectiveDate,
		TotalChars:    domain.RuneCount(content),
		Metadata:      map[string]string{domain.MetaStrategy: string(tree.Strategy)},
	}
	if existing != nil {
		doc.CreatedAt = existing.CreatedAt
	}
	doc.RecordChunks(chunks)

	// 6. PERSIST HIERARCHY
	result, err := s.persist(ctx, doc, chunks)
	if err != nil {
		if rbErr := s.purge(context.WithoutCancel(ctx), docID); rbErr != nil {
			s.log.Error("rollback failed", "document", docID, "error", rbErr)
		}
		return nil, err
	}

	stored, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("reloading document %s: %w", docID, err)
	}
	result.Path = path
	result.Document = *stored
	result.Strategy = string(tree.Strategy)
	result.Duration = time.Since(start)

	s.log.Info("indexed document",
		"document", docID,
		"strategy", tree.Strategy,
		"chunks", len(chunks),
		"summary_embeddings", result.SummaryEmbeddings,
		"detail_embeddings", result.DetailEmbeddings,
		"duration", result.Duration)
	return result, nil
}

// persist writes the document, its chunks, the closure and the embeddings.
// The caller rolls back on error.
func (s *IndexService) persist(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (*driving.IndexResult, error) {
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	if err := s.store.SaveChunksBatch(ctx, chunks); err != nil {
		return nil, fmt.Errorf("saving chunks of %s: %w", doc.ID, err)
	}
	if err := s.store.BuildClosureTable(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("building closure of %s: %w", doc.ID, err)
	}
	return s.embed(ctx, chunks)
}

// embed computes one vector per chunk in batches and writes it into every
// index the chunk's level admits.
func (s *IndexService) embed(ctx context.Context, chunks []domain.Chunk) (*driving.IndexResult, error) {
	result := &driving.IndexResult{}
	for start := 0; start < len(chunks); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = EmbeddingText(&batch[i])
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingFatal, len(vectors), len(batch))
		}

		for i := range batch {
			c := &batch[i]
			if c.Level.InSummaryIndex() {
				if err := s.vectors.SaveEmbedding(ctx, c.ID, vectors[i], domain.IndexingLevelSummary); err != nil {
					return nil, fmt.Errorf("saving summary embedding of %s: %w", c.ID, err)
				}
				result.SummaryEmbeddings++
			}
			if c.Level.InDetailIndex() {
				if err := s.vectors.SaveEmbedding(ctx, c.ID, vectors[i], domain.IndexingLevelDetail); err != nil {
					return nil, fmt.Errorf("saving detail embedding of %s: %w", c.ID, err)
				}
				result.DetailEmbeddings++
			}
		}
		s.log.Debug("embedded batch", "from", start, "to", end-1)
	}
	return result, nil
}

// purge removes every trace of a document.
func (s *IndexService) purge(ctx context.Context, id domain.DocumentID) error {
	if err := s.vectors.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting embeddings of %s: %w", id, err)
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// EmbeddingText returns the text embedded for a chunk. Length-driven splits
// are prefixed with the label of the node they were cut from so that an
// isolated fragment still carries its structural context.
func EmbeddingText(c *domain.Chunk) string {
	if parent := c.Metadata[domain.MetaParentContext]; parent != "" {
		return parent + "\n\n" + c.Content
	}
	return c.Content
}

// BulkIndex indexes many files, running up to opts.Concurrency documents at once.
// Without SkipErrors the first failure stops scheduling: documents not yet
// started are neither indexed nor reported.
func (s *IndexService) BulkIndex(ctx context.Context, paths []string, opts driving.BulkOptions) (*driving.BulkResult, error) {
	runID := uuid.NewString()
	log := s.log.With("run", runID)
	log.Info("bulk index started", "documents", len(paths))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = s.config.Concurrency
	}

	results := make([]*driving.IndexResult, len(paths))
	var (
		mu       sync.Mutex
		failures []driving.BulkFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot freed by a failing document opens only after the
			// group context is cancelled.
			if gctx.Err() != nil {
				return nil
			}
			res, err := s.IndexDocument(gctx, path, opts.IndexOptions)
			if err == nil {
				results[i] = res
				return nil
			}
			if ctx.Err() == nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				// Interrupted by another document's failure.
				return nil
			}
			log.Warn("document failed", "path", path, "error", err)
			mu.Lock()
			failures = append(failures, driving.BulkFailure{Path: path, Err: err})
			mu.Unlock()
			if opts.SkipErrors {
				return nil
			}
			return fmt.Errorf("indexing %s: %w", path, err)
		})
	}
	waitErr := g.Wait()

	out := &driving.BulkResult{RunID: runID, Failures: failures}
	for _, res := range results {
		if res != nil {
			out.Indexed = append(out.Indexed, *res)
		}
	}
	log.Info("bulk index finished", "indexed", len(out.Indexed), "failed", len(out.Failures))

	if waitErr == nil && ctx.Err() != nil {
		return out, ctx.Err()
	}
	if waitErr != nil {
		errs := make([]error, 0, len(failures))
		for _, f := range failures {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
		return out, errors.Join(errs...)
	}
	return out, nil
}

// IndexDirectory indexes every file under dir whose extension is configured.
func (s *IndexService) IndexDirectory(ctx context.Context, dir string, opts driving.BulkOptions) (*driving.BulkResult, error) {
	paths, err := s.reader.List(ctx, dir, s.config.Extensions)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		s.log.Warn("no files to index", "dir", dir, "extensions", s.config.Extensions)
	}
	return s.BulkIndex(ctx, paths, opts)
}
