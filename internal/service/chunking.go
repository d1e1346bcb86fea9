package service

import "strings"

// SplitSentences splits profile content into the units that get embedded.
// Segments are cut on '.', trimmed, and dropped when empty. Order is kept.
func SplitSentences(text string) []string {
	parts := strings.Split(strings.TrimSpace(text), ".")
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, p)
	}
	return chunks
}
