package entity

import (
	"fmt"
	"math"
	"strings"
)

// Placeholders the extraction prompt asks the model to use for missing data.
var emptyMarkers = map[string]bool{
	"":      true,
	"empty": true,
	"none":  true,
	"null":  true,
	"n/a":   true,
}

// FieldStats summarises how complete an extraction is.
type FieldStats struct {
	TotalKeys      int      `json:"total_keys"`
	EmptyKeysCount int      `json:"empty_keys_count"`
	EmptyKeys      []string `json:"empty_keys"`
	EmptyKeyPerc   string   `json:"empty_key_perc"`
}

// Stats counts every leaf in t, including leaves inside lists, and reports the
// ones whose value is blank or an explicit placeholder.
func Stats(t *Tree) FieldStats {
	stats := FieldStats{EmptyKeys: []string{}}
	t.Walk(func(path, _ string, n Node) bool {
		leaf, ok := n.(*Leaf)
		if !ok {
			return true
		}
		stats.TotalKeys++
		if IsEmptyValue(leaf.Value) {
			stats.EmptyKeys = append(stats.EmptyKeys, path)
		}
		return false
	})
	stats.EmptyKeysCount = len(stats.EmptyKeys)

	pct := 0.0
	if stats.TotalKeys > 0 {
		pct = float64(stats.EmptyKeysCount) / float64(stats.TotalKeys) * 100
	}
	stats.EmptyKeyPerc = fmt.Sprintf("%d%%", int(math.RoundToEven(pct)))
	return stats
}

// IsEmptyValue reports whether v holds no usable text.
func IsEmptyValue(v Value) bool {
	text, ok := v.Scalar()
	if !ok {
		return true
	}
	return emptyMarkers[strings.ToLower(strings.TrimSpace(text))]
}
