package scoring

import (
	"strings"

	"claimassist/internal/entity"
)

const promptHeader = `You are a clinical validation AI reviewing a workers' compensation document.
Assign a confidence score in the closed interval [0, 1] for each extracted field value,
reflecting how strongly the source text supports it (consider context like entity names, dates, units).

Return ONLY a valid JSON object. Keys must be field names. Values must be numeric (floats).
No explanations, no extra text. Example: {"field1": 0.85, "field2": 0.62}

Scoring guidance:
- Use the upper end of the scale only when the text explicitly supports the value and its context aligns.
- If support is strong but minor uncertainty remains, choose a high value below the upper end.
- If support is implied, ambiguous or partial, choose a mid value.
- If weakly supported or not supported, choose a low value near 0.
- If the text contradicts the value, use exactly 0.

`

// BuildPrompt renders the scoring request for one batch of fields.
func BuildPrompt(text string, fields []entity.FieldDescriptor) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(text) + 64*len(fields))
	b.WriteString(promptHeader)
	b.WriteString("Document Text:\n")
	b.WriteString(text)
	b.WriteString("\n\nExtracted Fields:\n")
	for _, f := range fields {
		b.WriteString("- ")
		b.WriteString(f.Field)
		b.WriteString(": ")
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	b.WriteString("\nReturn JSON only:")
	return b.String()
}
