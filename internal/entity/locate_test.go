package entity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedTree = `{
	"s1": {
		"a": {"value": "  x  "},
		"b": {"value": "   "},
		"c": {"value": {"current_value": "new", "previous_value": "old"}},
		"d": {"value": {"previous_value": "old"}},
		"e": "plain",
		"f": {"inner": {"g": {"value": "deep"}}}
	},
	"list": [{"h": {"value": "skip"}}],
	"n": {"value": 5}
}`

func TestLocate(t *testing.T) {
	tree, err := Parse([]byte(mixedTree))
	require.NoError(t, err)

	fields := Locate(tree)
	assert.Equal(t, []FieldDescriptor{
		{Path: "s1.a", Field: "a", Value: "x"},
		{Path: "s1.c", Field: "c", Value: "new"},
		{Path: "s1.f.inner.g", Field: "g", Value: "deep"},
	}, fields)

	assert.Equal(t, fields, Locate(tree), "locate is restartable")
	assert.Empty(t, Locate(nil))
	assert.Empty(t, Locate(NewTree()))
}

func TestApply(t *testing.T) {
	tree, err := Parse([]byte(`{"sec":{"employee_name":{"value":"Jane Doe"},"dob":{"value":"01/02/1980"}}}`))
	require.NoError(t, err)
	fields := Locate(tree)

	scored := Apply(tree, fields, ScoreMap{"employee_name": 0.853})

	assert.Equal(t, `{"sec":{"employee_name":{"value":"Jane Doe","confidence":"85%"},"dob":{"value":"01/02/1980"}}}`, scored.String())
	assert.Equal(t, `{"sec":{"employee_name":{"value":"Jane Doe"},"dob":{"value":"01/02/1980"}}}`, tree.String(), "input tree is untouched")

	n, ok := scored.Lookup("sec.dob")
	require.True(t, ok)
	assert.False(t, n.(*Leaf).HasConfidence(), "unscored fields get no confidence")
}

func TestApplySkipsUnresolvablePaths(t *testing.T) {
	tree, err := Parse([]byte(`{"sec":{"f":{"value":"v"}},"flat":"x"}`))
	require.NoError(t, err)

	fields := []FieldDescriptor{
		{Path: "missing.f", Field: "f", Value: "v"},
		{Path: "flat.f", Field: "f", Value: "v"},
		{Path: "sec.nope", Field: "f", Value: "v"},
		{Path: "sec", Field: "f", Value: "v"},
	}
	out := tree.Clone()
	applied := ApplyInPlace(out, fields, ScoreMap{"f": 0.5})

	assert.Equal(t, 0, applied)
	assert.Equal(t, tree.String(), out.String())
}

func TestApplyReplacesExistingConfidenceInPlace(t *testing.T) {
	tree, err := Parse([]byte(`{"s":{"f":{"value":"a","confidence":0.9,"page":1}}}`))
	require.NoError(t, err)

	scored := Apply(tree, Locate(tree), ScoreMap{"f": 0.5})
	assert.Equal(t, `{"s":{"f":{"value":"a","confidence":"50%","page":1}}}`, scored.String())
}

func TestApplyKeepsLocatedShape(t *testing.T) {
	tree, err := Parse([]byte(mixedTree))
	require.NoError(t, err)

	fields := Locate(tree)
	scores := ScoreMap{"a": 0.1, "c": 1, "g": 0.42, "unknown": 0.7}
	scored := Apply(tree, fields, scores)

	assert.Equal(t, fields, Locate(scored))
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.853, "85%"},
		{0, "0%"},
		{1, "100%"},
		{0.999, "100%"},
		{1.7, "100%"},
		{-0.2, "0%"},
		{0.42, "42%"},
		{0.856, "86%"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.score), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPercent(tt.score))
		})
	}
}

func TestPercentRoundTrip(t *testing.T) {
	for i := 0; i <= 100; i++ {
		pct := fmt.Sprintf("%d%%", i)
		dec, ok := ParsePercent(pct)
		require.True(t, ok, pct)
		assert.Equal(t, pct, FormatPercent(dec))
	}
}

func TestParsePercentRejects(t *testing.T) {
	for _, in := range []string{"", "85", "0.85", "abc%", "%", "101%", "-1%", "FLOAT"} {
		_, ok := ParsePercent(in)
		assert.False(t, ok, in)
	}
	v, ok := ParsePercent(" 73 % ")
	assert.True(t, ok)
	assert.InDelta(t, 0.73, v, 1e-9)
}
