// Package postgres provides the PostgreSQL implementation of the hierarchy
// store and the vector index.
//
// Chunk paths are stored as ltree labels so the closure table is derived with
// the ancestor operator, and embeddings are pgvector columns ranked with the
// cosine distance operator. Writes to one document are serialised with a
// transaction-scoped advisory lock keyed by the document ID.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// Store is a PostgreSQL-backed storage that provides the hierarchy store
// and the vector index through wrapper types.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for consistency warnings.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore connects to dsn, runs pending migrations and opens a pool whose
// connections understand the vector type.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrInvalidInput)
	}

	s := &Store{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	// The vector type must exist before the pool registers it.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	err = migrate(ctx, conn, migrations.FS)
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	s.pool = pool
	return s, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// HierarchyStore returns a HierarchyStore backed by this store.
func (s *Store) HierarchyStore() driven.HierarchyStore {
	return &hierarchyStore{store: s}
}

// VectorIndex returns a VectorIndex backed by this store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate applies every NNN_*.up.sql file newer than the recorded version.
func migrate(ctx context.Context, conn *pgx.Conn, fsys embed.FS) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := conn.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").
		Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// lockDocument takes the per-document advisory lock for the rest of tx.
func lockDocument(ctx context.Context, tx pgx.Tx, id domain.DocumentID) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", string(id)); err != nil {
		return fmt.Errorf("locking document %s: %w", id, err)
	}
	return nil
}

// ==================== Hierarchy Store ====================

type hierarchyStore struct {
	store *Store
}

var _ driven.HierarchyStore = (*hierarchyStore)(nil)

const chunkColumns = `c.id, c.document_id, c.content, c.path_segments, c.depth, c.position,
	c.chunk_type, c.indexing_level, c.parent_id, c.child_ids, c.source_file, c.page_number,
	c.article_label, c.chapter_label, c.char_count, c.metadata, c.created_at`

const documentColumns = `id, title, source_file, category, version, effective_date,
	total_chars, chunk_count, metadata, created_at, updated_at`

// SaveDocument stores or updates a document.
func (s *hierarchyStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			source_file = excluded.source_file,
			category = excluded.category,
			version = excluded.version,
			effective_date = excluded.effective_date,
			total_chars = excluded.total_chars,
			chunk_count = excluded.chunk_count,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.SourceFile, doc.Category, doc.Version, doc.EffectiveDate,
		doc.TotalChars, doc.ChunkCount, metadataOrEmpty(doc.Metadata), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return translateError(fmt.Sprintf("saving document %s", doc.ID), err)
	}
	return nil
}

// SaveChunksBatch stores chunks in one transaction under the document lock.
func (s *hierarchyStore) SaveChunksBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	locked := make(map[domain.DocumentID]bool)
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range chunks {
		c := &chunks[i]
		if !locked[c.DocumentID] {
			if err := lockDocument(ctx, tx, c.DocumentID); err != nil {
				return err
			}
			locked[c.DocumentID] = true
		}

		label, consistent := domain.EncodePathLabel(c.Path, c.Depth)
		if !consistent {
			s.store.log.Warn("path label does not match depth",
				"chunk", c.ID, "label", label, "depth", c.Depth)
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		batch.Queue(`
			INSERT INTO chunks (id, document_id, content, path_segments, path_label, depth, position,
				chunk_type, indexing_level, parent_id, child_ids, source_file, page_number,
				article_label, chapter_label, char_count, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5::ltree, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			ON CONFLICT (id) DO UPDATE SET
				content = excluded.content,
				path_segments = excluded.path_segments,
				path_label = excluded.path_label,
				depth = excluded.depth,
				char_count = excluded.char_count
		`, c.ID, c.DocumentID, c.Content, c.Path.Segments(), label, c.Depth, c.Position,
			c.Type, c.Level, nullableID(c.ParentID), idStrings(c.ChildIDs), c.SourceFile, c.PageNumber,
			c.ArticleLabel, c.ChapterLabel, c.CharCount, metadataOrEmpty(c.Metadata), createdAt)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return translateError(fmt.Sprintf("saving chunk %s", chunks[i].ID), err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// BuildClosureTable replaces the closure rows of a document with every
// ancestor/descendant pair. The ltree index narrows the candidates; the
// segment prefix comparison makes the match exact when hashed labels
// collide.
func (s *hierarchyStore) BuildClosureTable(ctx context.Context, documentID domain.DocumentID) error {
	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockDocument(ctx, tx, documentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM chunk_closure WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("clearing closure: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO chunk_closure (ancestor_id, descendant_id, depth, document_id)
		SELECT a.id, d.id, d.depth - a.depth, d.document_id
		FROM chunks d
		JOIN chunks a
			ON a.document_id = d.document_id
			AND a.path_label @> d.path_label
			AND a.id <> d.id
			AND a.depth < d.depth
			AND d.path_segments[1:cardinality(a.path_segments)] = a.path_segments
		WHERE d.document_id = $1
		ON CONFLICT (ancestor_id, descendant_id) DO UPDATE SET depth = excluded.depth
	`, documentID)
	if err != nil {
		return fmt.Errorf("building closure: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *hierarchyStore) GetDocument(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	row := s.store.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id)
	return scanDocument(row)
}

// GetDocumentBySource retrieves the document indexed from a source filename.
func (s *hierarchyStore) GetDocumentBySource(ctx context.Context, sourceFile string) (*domain.Document, error) {
	row := s.store.pool.QueryRow(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE source_file = $1", sourceFile)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by ID.
func (s *hierarchyStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.pool.Query(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; chunks, closure rows and embeddings cascade.
func (s *hierarchyStore) DeleteDocument(ctx context.Context, id domain.DocumentID) error {
	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockDocument(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *hierarchyStore) GetChunk(ctx context.Context, id domain.ChunkID) (*domain.Chunk, error) {
	row := s.store.pool.QueryRow(ctx, "SELECT "+chunkColumns+" FROM chunks c WHERE c.id = $1", id)
	return scanChunk(row)
}

// GetChunks returns every chunk of a document in pre-order.
func (s *hierarchyStore) GetChunks(ctx context.Context, documentID domain.DocumentID) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks c
		WHERE c.document_id = $1 ORDER BY c.position`, documentID)
}

// GetChildren returns the direct children of a chunk in document order.
func (s *hierarchyStore) GetChildren(ctx context.Context, id domain.ChunkID) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks c
		WHERE c.parent_id = $1 ORDER BY c.position`, id)
}

// GetAncestors returns the ancestors of a chunk, nearest first.
func (s *hierarchyStore) GetAncestors(ctx context.Context, id domain.ChunkID, maxDepth int) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunk_closure cc
		JOIN chunks c ON c.id = cc.ancestor_id
		WHERE cc.descendant_id = $1 AND ($2 <= 0 OR cc.depth <= $2)
		ORDER BY cc.depth`, id, maxDepth)
}

// GetClosure returns the closure rows of a document.
func (s *hierarchyStore) GetClosure(ctx context.Context, documentID domain.DocumentID) ([]domain.ClosureEntry, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT ancestor_id, descendant_id, depth FROM chunk_closure
		WHERE document_id = $1 ORDER BY descendant_id, depth
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying closure: %w", err)
	}
	defer rows.Close()

	var entries []domain.ClosureEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.ClosureEntry
		if err := rows.Scan(&e.AncestorID, &e.DescendantID, &e.Depth); err != nil {
			return nil, fmt.Errorf("scanning closure row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating closure: %w", err)
	}
	return entries, nil
}

// DocumentStats counts what is stored for a document.
func (s *hierarchyStore) DocumentStats(ctx context.Context, id domain.DocumentID) (*domain.DocumentStats, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &domain.DocumentStats{
		Document:      *doc,
		ChunksByType:  make(map[domain.ChunkType]int),
		ChunksByLevel: make(map[domain.IndexingLevel]int),
	}

	rows, err := s.store.pool.Query(ctx, `
		SELECT chunk_type, indexing_level, COUNT(*), MAX(depth)
		FROM chunks WHERE document_id = $1
		GROUP BY chunk_type, indexing_level
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunk counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunkType domain.ChunkType
		var level domain.IndexingLevel
		var count int64
		var maxDepth int
		if err := rows.Scan(&chunkType, &level, &count, &maxDepth); err != nil {
			return nil, fmt.Errorf("scanning chunk counts: %w", err)
		}
		stats.ChunksByType[chunkType] += int(count)
		stats.ChunksByLevel[level] += int(count)
		if maxDepth > stats.MaxDepth {
			stats.MaxDepth = maxDepth
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk counts: %w", err)
	}

	var closureRows int64
	if err := s.store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM chunk_closure WHERE document_id = $1", id).
		Scan(&closureRows); err != nil {
		return nil, fmt.Errorf("counting closure rows: %w", err)
	}
	stats.ClosureRows = int(closureRows)

	return stats, nil
}

func (s *hierarchyStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Vector Index ====================

type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

func embeddingTable(index domain.IndexingLevel) (string, error) {
	switch index {
	case domain.IndexingLevelSummary:
		return "chunk_embeddings_summary", nil
	case domain.IndexingLevelDetail:
		return "chunk_embeddings_detail", nil
	default:
		return "", fmt.Errorf("%w: index %q", domain.ErrInvalidLevel, index)
	}
}

// SaveEmbedding stores or replaces the vector of a chunk in one index.
func (v *vectorIndex) SaveEmbedding(ctx context.Context, chunkID domain.ChunkID, vector []float32,
	index domain.IndexingLevel) error {
	table, err := embeddingTable(index)
	if err != nil {
		return err
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrInvalidInput)
	}

	var level domain.IndexingLevel
	var documentID domain.DocumentID
	err = v.store.pool.QueryRow(ctx, "SELECT indexing_level, document_id FROM chunks WHERE id = $1", chunkID).
		Scan(&level, &documentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
		}
		return fmt.Errorf("looking up chunk: %w", err)
	}
	if !level.Accepts(index) {
		return fmt.Errorf("%w: chunk %s is %s, not %s", domain.ErrInvalidLevel, chunkID, level, index)
	}

	dims, err := v.dimensions(ctx, table)
	if err != nil {
		return err
	}
	if dims > 0 && dims != len(vector) {
		return fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vector), dims)
	}

	_, err = v.store.pool.Exec(ctx, `
		INSERT INTO `+table+` (chunk_id, document_id, embedding, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chunk_id) DO UPDATE SET
			embedding = excluded.embedding,
			created_at = excluded.created_at
	`, chunkID, documentID, pgvector.NewVector(vector))
	if err != nil {
		return translateError("saving embedding", err)
	}
	return nil
}

// GetEmbedding returns the stored vector of a chunk in one index.
func (v *vectorIndex) GetEmbedding(ctx context.Context, chunkID domain.ChunkID,
	index domain.IndexingLevel) ([]float32, error) {
	table, err := embeddingTable(index)
	if err != nil {
		return nil, err
	}

	var vec pgvector.Vector
	err = v.store.pool.QueryRow(ctx, "SELECT embedding FROM "+table+" WHERE chunk_id = $1", chunkID).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	return vec.Slice(), nil
}

// SimilaritySearch ranks vectors by cosine distance; similarity is 1 minus distance.
func (v *vectorIndex) SimilaritySearch(ctx context.Context, query []float32, index domain.IndexingLevel, k int,
	documentID domain.DocumentID) ([]driven.VectorHit, error) {
	table, err := embeddingTable(index)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	dims, err := v.dimensions(ctx, table)
	if err != nil {
		return nil, err
	}
	if dims > 0 && dims != len(query) {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(query), dims)
	}

	rows, err := v.store.pool.Query(ctx, `
		SELECT chunk_id, 1 - (embedding <=> $1) AS similarity
		FROM `+table+`
		WHERE ($2::text = '' OR document_id = $2::text)
		ORDER BY embedding <=> $1, chunk_id
		LIMIT $3
	`, pgvector.NewVector(query), string(documentID), k)
	if err != nil {
		return nil, fmt.Errorf("searching %s index: %w", index, err)
	}
	defer rows.Close()

	hits := make([]driven.VectorHit, 0, k)
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.ChunkID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

// Count returns the number of vectors of a document in one index.
func (v *vectorIndex) Count(ctx context.Context, documentID domain.DocumentID, index domain.IndexingLevel) (int, error) {
	table, err := embeddingTable(index)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := v.store.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+" WHERE document_id = $1", documentID).
		Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return int(n), nil
}

// DeleteDocument removes every vector of a document from both indexes.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID domain.DocumentID) error {
	for _, index := range []domain.IndexingLevel{domain.IndexingLevelSummary, domain.IndexingLevelDetail} {
		table, _ := embeddingTable(index)
		if _, err := v.store.pool.Exec(ctx, "DELETE FROM "+table+" WHERE document_id = $1", documentID); err != nil {
			return fmt.Errorf("deleting %s embeddings: %w", index, err)
		}
	}
	return nil
}

func (v *vectorIndex) dimensions(ctx context.Context, table string) (int, error) {
	var dims int
	err := v.store.pool.QueryRow(ctx, "SELECT vector_dims(embedding) FROM "+table+" LIMIT 1").Scan(&dims)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading index dimensions: %w", err)
	}
	return dims, nil
}

// ==================== Helpers ====================

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.SourceFile, &doc.Category, &doc.Version, &doc.EffectiveDate,
		&doc.TotalChars, &doc.ChunkCount, &doc.Metadata, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if len(doc.Metadata) == 0 {
		doc.Metadata = nil
	}
	return &doc, nil
}

func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var c domain.Chunk
	var segments, childIDs []string
	var parentID *string

	if err := row.Scan(&c.ID, &c.DocumentID, &c.Content, &segments, &c.Depth, &c.Position,
		&c.Type, &c.Level, &parentID, &childIDs, &c.SourceFile, &c.PageNumber,
		&c.ArticleLabel, &c.ChapterLabel, &c.CharCount, &c.Metadata, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	c.Path = domain.NewHierarchyPath(segments...)
	if parentID != nil {
		c.ParentID = domain.ChunkID(*parentID)
	}
	for _, id := range childIDs {
		c.ChildIDs = append(c.ChildIDs, domain.ChunkID(id))
	}
	if len(c.Metadata) == 0 {
		c.Metadata = nil
	}
	return &c, nil
}

// translateError maps constraint violations onto domain errors.
func translateError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullableID(id domain.ChunkID) *string {
	if id.IsZero() {
		return nil
	}
	s := string(id)
	return &s
}

func idStrings(ids []domain.ChunkID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
