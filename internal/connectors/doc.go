// Package connectors holds the adapters that read source documents.
// The filesystem connector is the only source; it implements
// driven.SourceReader and driven.SourceWatcher.
package connectors
