// Package filter implements the title and attribution predicates used when
// deciding whether a scraped item is tracked.
package filter

import "strings"

// TitleSkipped reports whether title contains any of the skip sequences.
// Matching is case-sensitive; empty sequences never match.
func TitleSkipped(title string, sequences []string) bool {
	for _, seq := range sequences {
		if seq == "" {
			continue
		}
		if strings.Contains(title, seq) {
			return true
		}
	}
	return false
}

// HasArtist reports whether artist is among names. Surrounding whitespace is
// ignored on both sides; the comparison is otherwise exact.
func HasArtist(names []string, artist string) bool {
	artist = strings.TrimSpace(artist)
	for _, n := range names {
		if strings.TrimSpace(n) == artist {
			return true
		}
	}
	return false
}
