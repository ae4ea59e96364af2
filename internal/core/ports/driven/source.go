package driven

import "context"

// SourceReader reads the raw text of a source file.
type SourceReader interface {
	// Read returns the file content. Failures wrap domain.ErrReadSource.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns the files under dir whose extension is in extensions,
	// sorted by path.
	List(ctx context.Context, dir string, extensions []string) ([]string, error)
}

// SourceChange is a file event seen by a SourceWatcher.
type SourceChange struct {
	// Path is the changed file.
	Path string

	// Removed is true when the file was deleted or renamed away.
	Removed bool
}

// SourceWatcher reports changes to source files under a directory.
type SourceWatcher interface {
	// Watch emits changes to files under dir whose extension is in
	// extensions. The channel is closed when ctx is done.
	Watch(ctx context.Context, dir string, extensions []string) (<-chan SourceChange, error)
}
