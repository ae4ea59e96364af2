// Package domain defines the core business entities for hierag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A statute or manual that has been indexed
//   - Chunk: A node of a document's hierarchy tree
//   - HierarchyPath: The ordered structural labels from root to a node
//   - ClosureEntry: An ancestor/descendant pair of the hierarchy
//   - RetrievalResult: A retrieved chunk with its surrounding context
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
