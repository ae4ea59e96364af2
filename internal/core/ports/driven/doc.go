// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - HierarchyStore: Documents, chunks and the closure table
//   - VectorIndex: The summary and detail embedding indexes
//   - EmbeddingService: Turns text into vectors
//   - SourceReader: Reads source files
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - DocumentLocker: Cross-process exclusion for document writes. When nil,
//     services fall back to an in-process lock.
//   - SourceWatcher: File change notifications for watch mode
//   - AIConfigValidator: Connectivity check for embedding settings
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
