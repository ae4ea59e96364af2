package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// IndexOptions controls how one document is indexed.
type IndexOptions struct {
	// Force replaces an already indexed document.
	Force bool

	// Strategy forces a chunking strategy ("legal", "markdown", "flat").
	// Empty selects one from the content.
	Strategy string

	// Category, Version and EffectiveDate are stored on the document.
	Category      string
	Version       string
	EffectiveDate *time.Time
}

// BulkOptions controls indexing of many documents.
type BulkOptions struct {
	IndexOptions

	// SkipErrors records failures and continues instead of aborting.
	SkipErrors bool

	// Concurrency is how many documents are indexed at once (minimum 1).
	Concurrency int
}

// IndexResult describes the outcome for one document.
type IndexResult struct {
	// Path is the source file.
	Path string

	// Document is the stored document.
	Document domain.Document

	// Skipped is true when the document was already indexed and not forced.
	Skipped bool

	// Strategy is the chunking strategy used.
	Strategy string

	// SummaryEmbeddings and DetailEmbeddings count the vectors written.
	SummaryEmbeddings int
	DetailEmbeddings  int

	// Duration is how long indexing took.
	Duration time.Duration
}

// BulkFailure records one document that could not be indexed.
type BulkFailure struct {
	// Path is the source file.
	Path string

	// Err is the cause.
	Err error
}

// BulkResult describes the outcome of a bulk run.
type BulkResult struct {
	// RunID correlates log lines of one run.
	RunID string

	// Indexed lists successful documents in input order.
	Indexed []IndexResult

	// Failures lists documents that failed.
	Failures []BulkFailure
}

// WatchEvent reports the outcome for one changed file in watch mode.
type WatchEvent struct {
	// Path is the changed file.
	Path string

	// Removed is true when the file disappeared and its document was deleted.
	Removed bool

	// Result is set when the file was re-indexed.
	Result *IndexResult

	// Err is set when handling the change failed.
	Err error
}

// IndexService turns source files into persisted hierarchies with embeddings.
type IndexService interface {
	// IndexDocument chunks, persists and embeds one source file.
	IndexDocument(ctx context.Context, path string, opts IndexOptions) (*IndexResult, error)

	// BulkIndex indexes many files.
	BulkIndex(ctx context.Context, paths []string, opts BulkOptions) (*BulkResult, error)

	// IndexDirectory indexes every configured file type under dir.
	IndexDirectory(ctx context.Context, dir string, opts BulkOptions) (*BulkResult, error)

	// Watch re-indexes files under dir as they change until ctx is done.
	// Each handled change is passed to report.
	Watch(ctx context.Context, dir string, opts IndexOptions, report func(WatchEvent)) error
}
