// Package normalisers derives document-level facts from raw source text
// before it is chunked. Each source format has its own rules: markdown
// titles come from the first level-1 header, plain text titles from a
// short leading line.
package normalisers
