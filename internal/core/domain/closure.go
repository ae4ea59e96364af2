package domain

// ClosureEntry records that Ancestor lies Depth levels above Descendant.
// Depth is always positive; a node is never its own ancestor.
type ClosureEntry struct {
	// AncestorID is the upper node.
	AncestorID ChunkID

	// DescendantID is the lower node.
	DescendantID ChunkID

	// Depth is the distance in levels between the two.
	Depth int
}

// ComputeClosure derives every ancestor/descendant pair of one document
// by matching hierarchy paths: a chunk is an ancestor of another exactly
// when its path is a strict prefix of the other's.
// Chunks must all belong to the same document.
func ComputeClosure(chunks []Chunk) []ClosureEntry {
	byPath := make(map[string]ChunkID, len(chunks))
	for i := range chunks {
		k := chunks[i].Path.key()
		if _, exists := byPath[k]; !exists {
			byPath[k] = chunks[i].ID
		}
	}

	var entries []ClosureEntry
	for i := range chunks {
		c := &chunks[i]
		depth := c.Path.Depth()
		for n := depth - 1; n >= 0; n-- {
			ancestorID, ok := byPath[c.Path.Prefix(n).key()]
			if !ok || ancestorID == c.ID {
				continue
			}
			entries = append(entries, ClosureEntry{
				AncestorID:   ancestorID,
				DescendantID: c.ID,
				Depth:        depth - n,
			})
		}
	}
	return entries
}
