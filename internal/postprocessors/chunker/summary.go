package chunker

import (
	"strings"

	"github.com/custodia-labs/hierag/internal/core/domain"
)

// Summarise returns a short synopsis of content: its first paragraph when
// that fits maxLength characters, otherwise the first maxLength characters
// followed by "...".
func Summarise(content string, maxLength int) string {
	content = strings.TrimSpace(content)
	first, _, _ := strings.Cut(content, "\n\n")
	first = strings.TrimSpace(first)
	if domain.RuneCount(first) <= maxLength {
		return first
	}

	s := strings.TrimSpace(domain.TruncateRunes(content, maxLength))
	if domain.RuneCount(content) > maxLength {
		s += domain.Ellipsis
	}
	return s
}
