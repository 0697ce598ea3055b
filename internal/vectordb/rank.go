package vectordb

import (
	"fmt"
	"slices"
	"strings"
)

// SortHits orders hits by descending score, then ascending id.
func SortHits(hits []Hit) {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

// Texts returns the hit texts in rank order.
func Texts(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Text
	}
	return out
}

// FormatHits renders search results as human-readable text.
func FormatHits(hits []Hit) string {
	if len(hits) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(hits)))

	for i, h := range hits {
		sb.WriteString(fmt.Sprintf("--- Result %d (id: %d, similarity: %.4f) ---\n", i+1, h.ID, h.Score))
		sb.WriteString(h.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
