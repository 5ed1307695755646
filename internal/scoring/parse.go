package scoring

import (
	"encoding/json"
	"errors"
	"math"

	"claimassist/internal/entity"
	"claimassist/internal/llm"
)

var errNoObject = errors.New("no JSON object in response")

// ParseScores reads a score mapping from model output. The whole response,
// minus any markdown fence, is tried first; if that fails the first balanced
// {...} substring is used.
// Non-numeric values are dropped and numbers are clamped to [0, 1].
func ParseScores(raw string) (entity.ScoreMap, error) {
	const op = "scoring.ParseScores"

	raw = llm.StripFences(raw)
	if raw == "" {
		return nil, &llm.ModelError{Op: op, Backend: "-", Err: llm.ErrEmptyResponse}
	}

	obj, err := decodeObject(raw)
	if err != nil {
		sub, ok := llm.FirstObject(raw)
		if !ok {
			return nil, llm.MalformedOutput(op, errNoObject)
		}
		if obj, err = decodeObject(sub); err != nil {
			return nil, llm.MalformedOutput(op, err)
		}
	}

	scores := make(entity.ScoreMap, len(obj))
	for name, v := range obj {
		var f float64
		if string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, &f); err != nil || math.IsNaN(f) {
			continue
		}
		scores[name] = math.Max(0, math.Min(1, f))
	}
	return scores, nil
}

func decodeObject(s string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNoObject
	}
	return obj, nil
}
