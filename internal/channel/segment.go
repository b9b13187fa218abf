package channel

import (
	"strings"
	"unicode"
)

// SplitSegments splits text into ordered segments of at most limit runes for
// SMS-style transports. Interior whitespace (newlines, repeated spaces) is
// preserved inside segments; breaks land on whitespace boundaries when one is
// in reach and only the boundary run itself is dropped. A run with no boundary
// within the limit is hard-split by runes so no segment ever exceeds the limit
// and no multi-byte character is cut.
func SplitSegments(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if limit <= 0 || len(runes) <= limit {
		return []string{trimmed}
	}

	segments := make([]string, 0, (len(runes)+limit-1)/limit)
	for len(runes) > 0 {
		if len(runes) <= limit {
			segments = append(segments, string(runes))
			break
		}

		cut := -1
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if cut < 0 {
			segments = append(segments, string(runes[:limit]))
			runes = runes[limit:]
			continue
		}

		end := cut
		for end > 0 && unicode.IsSpace(runes[end-1]) {
			end--
		}
		segments = append(segments, string(runes[:end]))
		runes = runes[cut+1:]
		for len(runes) > 0 && unicode.IsSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	return segments
}
