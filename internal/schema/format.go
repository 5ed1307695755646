package schema

import (
	"fmt"
	"strings"
)

// OutputFormat renders the JSON layout the model must return for this schema.
func (s *Schema) OutputFormat() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i, sec := range s.Sections {
		open, closing := "{", "}"
		if sec.Shape == ShapeList {
			open, closing = "[{", "}]"
		}
		fmt.Fprintf(&b, "  %q: %s\n", sec.Name, open)
		for j, f := range sec.Fields {
			fmt.Fprintf(&b, "    %q: {\n", f.Name)
			fmt.Fprintf(&b, "      \"value\": %q,\n", placeholder(f))
			b.WriteString("      \"confidence\": FLOAT\n")
			b.WriteString("    }")
			if j < len(sec.Fields)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString("  " + closing)
		if i < len(s.Sections)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}")
	return b.String()
}

// Questions returns the numbered field questions, if the schema defines any.
func (s *Schema) Questions() []string {
	var out []string
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.Question == "" {
				continue
			}
			q := f.Question
			if len(f.Enum) > 0 {
				q += " Pick one of: " + strings.Join(quoteAll(f.Enum), ", ") + "."
			}
			out = append(out, fmt.Sprintf("%d. %s", len(out)+1, q))
		}
	}
	return out
}

func placeholder(f Field) string {
	switch {
	case len(f.Enum) > 0:
		return strings.Join(f.Enum, " | ")
	case f.Type == TypeDate:
		return "MM/DD/YYYY"
	default:
		return "STRING"
	}
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = "'" + s + "'"
	}
	return out
}
