package extract

import (
	"fmt"
	"strings"

	"claimassist/internal/schema"
)

var guidelines = []string{
	"Be extremely precise in extraction.",
	"Copy values exactly as they appear in the document; prefer direct text matches over interpretation.",
	"Consider the surrounding text to confirm each value.",
	`Use "EMPTY" as the value of any field the document does not contain.`,
	"Write every date as MM/DD/YYYY.",
	"The confidence of each field is a number between 0 and 1 reflecting extraction accuracy.",
	"Generate only the JSON object, with no preamble, explanation or text after it.",
}

// BuildPrompt renders the extraction request for one document.
func BuildPrompt(s *schema.Schema, in Input) string {
	var b strings.Builder

	if s.Persona != "" {
		b.WriteString(s.Persona)
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "You are an expert document information extraction assistant specializing in workers' compensation %s documents.\n", s.Label)
	}
	b.WriteString("Your task is to extract all key entities with precision.\n\n")

	fmt.Fprintf(&b, "You are provided with a '%s' document within the <raw_text>, <key_value_pair_data> and <table_text> xml tags.\n\n", s.Label)
	fmt.Fprintf(&b, "<raw_text>%s</raw_text>\n", in.RawText)
	fmt.Fprintf(&b, "<key_value_pair_data>%s</key_value_pair_data>\n", in.KeyValueText)
	fmt.Fprintf(&b, "<table_text>%s</table_text>\n\n", in.TableText)

	if questions := s.Questions(); len(questions) > 0 {
		b.WriteString("Answer the following questions about the document:\n")
		for _, q := range questions {
			b.WriteString(q)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("Return the extracted entities in exactly this JSON format:\n")
	b.WriteString(s.OutputFormat())
	b.WriteString("\n\nGuidelines:\n")
	for _, g := range append(append([]string{}, guidelines...), s.Instructions...) {
		b.WriteString("- ")
		b.WriteString(g)
		b.WriteByte('\n')
	}
	return b.String()
}
