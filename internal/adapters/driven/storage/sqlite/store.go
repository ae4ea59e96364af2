package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/hierag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/hierag/internal/core/domain"
	"github.com/custodia-labs/hierag/internal/core/ports/driven"
	"github.com/custodia-labs/hierag/internal/logger"
)

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "hierag.db"

// Store is a unified SQLite-based storage that provides access to
// the hierarchy store and the vector index through wrapper types.
type Store struct {
	db   *sql.DB
	path string
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

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.hierag/data/hierag.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".hierag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while an indexing run writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// HierarchyStore returns a HierarchyStore backed by this store.
func (s *Store) HierarchyStore() driven.HierarchyStore {
	return &hierarchyStore{store: s}
}

// VectorIndex returns a VectorIndex backed by this store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
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

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Hierarchy Store ====================

// hierarchyStore implements driven.HierarchyStore.
type hierarchyStore struct {
	store *Store
}

var _ driven.HierarchyStore = (*hierarchyStore)(nil)

// chunkColumns is the column list every chunk query selects, in scanChunk order.
const chunkColumns = `c.id, c.document_id, c.content, c.path_segments, c.depth, c.position,
	c.chunk_type, c.indexing_level, c.parent_id, c.child_ids, c.source_file, c.page_number,
	c.article_label, c.chapter_label, c.char_count, c.metadata, c.created_at`

// documentColumns is the column list every document query selects.
const documentColumns = `id, title, source_file, category, version, effective_date,
	total_chars, chunk_count, metadata, created_at, updated_at`

// SaveDocument stores or updates a document.
func (s *hierarchyStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	metadataJSON, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var effective sql.NullTime
	if doc.EffectiveDate != nil {
		effective = sql.NullTime{Time: doc.EffectiveDate.UTC(), Valid: true}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source_file = excluded.source_file,
			category = excluded.category,
			version = excluded.version,
			effective_date = excluded.effective_date,
			total_chars = excluded.total_chars,
			chunk_count = excluded.chunk_count,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.SourceFile, doc.Category, doc.Version, effective,
		doc.TotalChars, doc.ChunkCount, metadataJSON, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: source %s already indexed", domain.ErrInvalidInput, doc.SourceFile)
		}
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunksBatch stores chunks in one transaction.
func (s *hierarchyStore) SaveChunksBatch(ctx context.Context, chunks []domain.Chunk) error {
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, path_segments, path_label, depth, position,
			chunk_type, indexing_level, parent_id, child_ids, source_file, page_number,
			article_label, chapter_label, char_count, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			path_segments = excluded.path_segments,
			path_label = excluded.path_label,
			depth = excluded.depth,
			char_count = excluded.char_count
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range chunks {
		c := &chunks[i]

		label, consistent := domain.EncodePathLabel(c.Path, c.Depth)
		if !consistent {
			s.store.log.Warn("path label does not match depth",
				"chunk", c.ID, "label", label, "depth", c.Depth)
		}

		pathJSON, err := json.Marshal(c.Path.Segments())
		if err != nil {
			return fmt.Errorf("marshalling path: %w", err)
		}
		childJSON, err := json.Marshal(nonNilIDs(c.ChildIDs))
		if err != nil {
			return fmt.Errorf("marshalling child ids: %w", err)
		}
		metadataJSON, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Content, string(pathJSON), label,
			c.Depth, c.Position, c.Type, c.Level, nullChunkID(c.ParentID), string(childJSON),
			c.SourceFile, c.PageNumber, c.ArticleLabel, c.ChapterLabel, c.CharCount,
			metadataJSON, createdAt); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: document or parent of chunk %s", domain.ErrNotFound, c.ID)
			}
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// BuildClosureTable recomputes the closure rows of a document from stored paths.
func (s *hierarchyStore) BuildClosureTable(ctx context.Context, documentID domain.DocumentID) error {
	chunks, err := s.GetChunks(ctx, documentID)
	if err != nil {
		return err
	}
	entries := domain.ComputeClosure(chunks)

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunk_closure WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing closure: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_closure (ancestor_id, descendant_id, depth, document_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ancestor_id, descendant_id) DO UPDATE SET depth = excluded.depth
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.AncestorID, e.DescendantID, e.Depth, documentID); err != nil {
			return fmt.Errorf("saving closure row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *hierarchyStore) GetDocument(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// GetDocumentBySource retrieves the document indexed from a source filename.
func (s *hierarchyStore) GetDocumentBySource(ctx context.Context, sourceFile string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE source_file = ?", sourceFile)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by ID.
func (s *hierarchyStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
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
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *hierarchyStore) GetChunk(ctx context.Context, id domain.ChunkID) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks c WHERE c.id = ?", id)
	return scanChunk(row)
}

// GetChunks returns every chunk of a document in pre-order.
func (s *hierarchyStore) GetChunks(ctx context.Context, documentID domain.DocumentID) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks c
		WHERE c.document_id = ? ORDER BY c.position`, documentID)
}

// GetChildren returns the direct children of a chunk in document order.
func (s *hierarchyStore) GetChildren(ctx context.Context, id domain.ChunkID) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks c
		WHERE c.parent_id = ? ORDER BY c.position`, id)
}

// GetAncestors returns the ancestors of a chunk, nearest first.
func (s *hierarchyStore) GetAncestors(ctx context.Context, id domain.ChunkID, maxDepth int) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunk_closure cc
		JOIN chunks c ON c.id = cc.ancestor_id
		WHERE cc.descendant_id = ? AND (? <= 0 OR cc.depth <= ?)
		ORDER BY cc.depth`, id, maxDepth, maxDepth)
}

// GetClosure returns the closure rows of a document.
func (s *hierarchyStore) GetClosure(ctx context.Context, documentID domain.DocumentID) ([]domain.ClosureEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT ancestor_id, descendant_id, depth FROM chunk_closure
		WHERE document_id = ? ORDER BY descendant_id, depth
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

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_type, indexing_level, COUNT(*), MAX(depth)
		FROM chunks WHERE document_id = ?
		GROUP BY chunk_type, indexing_level
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunk counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunkType domain.ChunkType
		var level domain.IndexingLevel
		var count, maxDepth int
		if err := rows.Scan(&chunkType, &level, &count, &maxDepth); err != nil {
			return nil, fmt.Errorf("scanning chunk counts: %w", err)
		}
		stats.ChunksByType[chunkType] += count
		stats.ChunksByLevel[level] += count
		if maxDepth > stats.MaxDepth {
			stats.MaxDepth = maxDepth
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk counts: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_closure WHERE document_id = ?", id)
	if err := row.Scan(&stats.ClosureRows); err != nil {
		return nil, fmt.Errorf("counting closure rows: %w", err)
	}

	return stats, nil
}

func (s *hierarchyStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// embeddingTable maps an index to its table name.
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
	row := v.store.db.QueryRowContext(ctx, "SELECT indexing_level, document_id FROM chunks WHERE id = ?", chunkID)
	if err := row.Scan(&level, &documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

	_, err = v.store.db.ExecContext(ctx, `
		INSERT INTO `+table+` (chunk_id, document_id, dimensions, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			created_at = excluded.created_at
	`, chunkID, documentID, len(vector), float32SliceToBytes(vector), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
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

	var blob []byte
	row := v.store.db.QueryRowContext(ctx, "SELECT embedding FROM "+table+" WHERE chunk_id = ?", chunkID)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}
	return bytesToFloat32Slice(blob), nil
}

// SimilaritySearch scores every vector of the index against the query.
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

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT chunk_id, embedding FROM `+table+`
		WHERE (? = '' OR document_id = ?)
	`, documentID, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit driven.VectorHit
		var blob []byte
		if err := rows.Scan(&hit.ChunkID, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		hit.Similarity = domain.CosineSimilarity(query, bytesToFloat32Slice(blob))
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of vectors of a document in one index.
func (v *vectorIndex) Count(ctx context.Context, documentID domain.DocumentID, index domain.IndexingLevel) (int, error) {
	table, err := embeddingTable(index)
	if err != nil {
		return 0, err
	}

	var n int
	row := v.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE document_id = ?", documentID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// DeleteDocument removes every vector of a document from both indexes.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID domain.DocumentID) error {
	for _, index := range []domain.IndexingLevel{domain.IndexingLevelSummary, domain.IndexingLevelDetail} {
		table, _ := embeddingTable(index)
		if _, err := v.store.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", documentID); err != nil {
			return fmt.Errorf("deleting %s embeddings: %w", index, err)
		}
	}
	return nil
}

// dimensions returns the vector length already stored in a table, or 0 when empty.
func (v *vectorIndex) dimensions(ctx context.Context, table string) (int, error) {
	var dims int
	row := v.store.db.QueryRowContext(ctx, "SELECT dimensions FROM "+table+" LIMIT 1")
	if err := row.Scan(&dims); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading index dimensions: %w", err)
	}
	return dims, nil
}

// ==================== Helpers ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// float32SliceToBytes converts []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var effective sql.NullTime
	var metadataJSON string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.SourceFile, &doc.Category, &doc.Version, &effective,
		&doc.TotalChars, &doc.ChunkCount, &metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if effective.Valid {
		t := effective.Time
		doc.EffectiveDate = &t
	}
	if err := unmarshalMetadata(metadataJSON, &doc.Metadata); err != nil {
		return nil, err
	}
	return &doc, nil
}

// scanChunk scans a single chunk row selected with chunkColumns.
func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var pathJSON, childJSON, metadataJSON string
	var parentID sql.NullString

	if err := row.Scan(&c.ID, &c.DocumentID, &c.Content, &pathJSON, &c.Depth, &c.Position,
		&c.Type, &c.Level, &parentID, &childJSON, &c.SourceFile, &c.PageNumber,
		&c.ArticleLabel, &c.ChapterLabel, &c.CharCount, &metadataJSON, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	var segments []string
	if err := json.Unmarshal([]byte(pathJSON), &segments); err != nil {
		return nil, fmt.Errorf("unmarshalling path: %w", err)
	}
	c.Path = domain.NewHierarchyPath(segments...)
	c.ParentID = domain.ChunkID(parentID.String)

	if err := json.Unmarshal([]byte(childJSON), &c.ChildIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling child ids: %w", err)
	}
	if len(c.ChildIDs) == 0 {
		c.ChildIDs = nil
	}
	if err := unmarshalMetadata(metadataJSON, &c.Metadata); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(data string, m *map[string]string) error {
	if data == "" || data == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), m); err != nil {
		return fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return nil
}

func nonNilIDs(ids []domain.ChunkID) []domain.ChunkID {
	if ids == nil {
		return []domain.ChunkID{}
	}
	return ids
}

func nullChunkID(id domain.ChunkID) sql.NullString {
	return sql.NullString{String: string(id), Valid: !id.IsZero()}
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
