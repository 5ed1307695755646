package scoring

import (
	"claimassist/internal/entity"
	"claimassist/internal/schema"
)

// Aggregate computes the weighted document confidence in [0, 1].
//
// Only fields directly under a top-level section are considered; deeper
// fields, including those inside list sections, do not contribute. A field
// counts when its confidence is a percentage string. Its weight comes from
// weights, defaulting to schema.DefaultWeight. An empty weight table, or no
// counted weight at all, yields 0.
func Aggregate(t *entity.Tree, weights schema.WeightTable) float64 {
	if t == nil || t.Root == nil || len(weights) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for _, secName := range t.Root.Keys() {
		n, _ := t.Root.Get(secName)
		sec, ok := n.(*entity.Section)
		if !ok {
			continue
		}
		for _, name := range sec.Keys() {
			child, _ := sec.Get(name)
			leaf, ok := child.(*entity.Leaf)
			if !ok || !leaf.HasConfidence() {
				continue
			}
			score, ok := entity.ParsePercent(leaf.Confidence())
			if !ok {
				continue
			}
			w := weights.Weight(name)
			weightedSum += score * w
			totalWeight += w
		}
	}

	if totalWeight <= 0 {
		return 0
	}
	return weightedSum / totalWeight
}
