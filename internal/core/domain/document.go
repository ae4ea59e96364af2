package domain

import "time"

// Document is an indexed source file: a statute, regulation or manual.
type Document struct {
	// ID is derived from the source filename.
	ID DocumentID

	// Title is the human-readable title.
	Title string

	// SourceFile is the filename the document was read from.
	SourceFile string

	// Category is an optional grouping such as "labour" or "tax".
	Category string

	// Version is an optional revision tag of the source text.
	Version string

	// EffectiveDate is when the source text came into force, if known.
	EffectiveDate *time.Time

	// TotalChars is the character count of the source text.
	TotalChars int

	// ChunkCount is the number of chunks the document was split into.
	ChunkCount int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]string

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// RecordChunks updates the document counters from its chunks.
func (d *Document) RecordChunks(chunks []Chunk) {
	d.ChunkCount = len(chunks)
}

// DocumentStats summarises what is stored for one document.
type DocumentStats struct {
	// Document is the document the stats describe.
	Document Document

	// ChunksByType counts chunks per structural role.
	ChunksByType map[ChunkType]int

	// ChunksByLevel counts chunks per indexing level.
	ChunksByLevel map[IndexingLevel]int

	// MaxDepth is the deepest node depth.
	MaxDepth int

	// ClosureRows is the number of ancestor/descendant pairs.
	ClosureRows int

	// SummaryEmbeddings is the number of vectors in the summary index.
	SummaryEmbeddings int

	// DetailEmbeddings is the number of vectors in the detail index.
	DetailEmbeddings int
}

// ExpectedSummaryEmbeddings returns how many summary vectors a fully
// indexed document should have.
func (s *DocumentStats) ExpectedSummaryEmbeddings() int {
	return s.ChunksByLevel[IndexingLevelSummary] + s.ChunksByLevel[IndexingLevelBoth]
}

// ExpectedDetailEmbeddings returns how many detail vectors a fully
// indexed document should have.
func (s *DocumentStats) ExpectedDetailEmbeddings() int {
	return s.ChunksByLevel[IndexingLevelDetail] + s.ChunksByLevel[IndexingLevelBoth]
}

// IsComplete returns true when every chunk has the vectors its level requires.
func (s *DocumentStats) IsComplete() bool {
	return s.SummaryEmbeddings == s.ExpectedSummaryEmbeddings() &&
		s.DetailEmbeddings == s.ExpectedDetailEmbeddings()
}
