package normalisers

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the longest leading line of plain text taken as a title.
const MaxTitleLength = 40

// Title returns a human-readable title for a source file.
// Markdown files use their first "# " header. Plain text uses its first
// non-empty line when it is short and not itself a chapter or article.
// Anything else falls back to the filename without extension.
func Title(sourceFile, content string) string {
	var title string
	switch strings.ToLower(filepath.Ext(sourceFile)) {
	case ".md", ".markdown":
		title = markdownTitle(content)
	default:
		title = plainTextTitle(content)
	}
	if title != "" {
		return title
	}
	return titleFromFilename(sourceFile)
}

// markdownTitle returns the text of the first level-1 header.
func markdownTitle(content string) string {
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

// plainTextTitle returns the first non-empty line if it reads like a title.
func plainTextTitle(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > MaxTitleLength ||
			strings.HasPrefix(line, "第") ||
			strings.ContainsAny(line, "。：:；") {
			return ""
		}
		return line
	}
	return ""
}

// titleFromFilename strips the extension and turns separators into spaces.
func titleFromFilename(sourceFile string) string {
	name := filepath.Base(sourceFile)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
