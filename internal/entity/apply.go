package entity

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ScoreMap maps a field name to a confidence in [0, 1].
type ScoreMap map[string]float64

// Apply returns a copy of t where every located field with a score carries a
// percentage confidence. t is not modified.
func Apply(t *Tree, fields []FieldDescriptor, scores ScoreMap) *Tree {
	out := t.Clone()
	ApplyInPlace(out, fields, scores)
	return out
}

// ApplyInPlace annotates t directly and returns the number of leaves updated.
// Paths that no longer resolve to a leaf are skipped without error, and fields
// missing from scores are left without a confidence.
func ApplyInPlace(t *Tree, fields []FieldDescriptor, scores ScoreMap) int {
	if t == nil || t.Root == nil {
		return 0
	}
	applied := 0
	for _, f := range fields {
		score, ok := scores[f.Field]
		if !ok {
			continue
		}
		leaf, ok := resolveLeaf(t.Root, f.Path)
		if !ok {
			continue
		}
		leaf.SetConfidence(FormatPercent(score))
		applied++
	}
	return applied
}

func resolveLeaf(root *Section, path string) (*Leaf, bool) {
	parts := strings.Split(path, ".")
	cur := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		sec, ok := next.(*Section)
		if !ok {
			return nil, false
		}
		cur = sec
	}
	n, ok := cur.Get(parts[len(parts)-1])
	if !ok {
		return nil, false
	}
	leaf, ok := n.(*Leaf)
	return leaf, ok
}

// FormatPercent renders a score in [0, 1] as an integer percentage such as
// "85%". Halves round to even and out-of-range scores are clamped.
func FormatPercent(score float64) string {
	if math.IsNaN(score) {
		score = 0
	}
	pct := math.RoundToEven(score * 100)
	pct = math.Max(0, math.Min(100, pct))
	return fmt.Sprintf("%d%%", int(pct))
}

// ParsePercent converts "85%" to 0.85. Strings without a trailing percent
// sign, non-numeric strings and values outside 0..100 are rejected.
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
		return 0, false
	}
	return v / 100, true
}
