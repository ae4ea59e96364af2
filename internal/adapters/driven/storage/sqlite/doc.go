// Package sqlite provides the SQLite implementation of the hierarchy store
// and the vector index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database connection serves:
//
//   - HierarchyStore: documents, chunk trees and the closure table
//   - VectorIndex: the summary and detail embedding tables
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Embeddings are stored as little-endian float32 blobs and searched by an
// exhaustive cosine scan.
//
// # Data Location
//
// By default, the database is stored at ~/.hierag/data/hierag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
