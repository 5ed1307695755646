package classify

import (
	"strings"

	"claimassist/internal/schema"
)

// BuildPrompt renders the classification request. The model must answer with
// exactly one label or the Unidentified sentinel.
func BuildPrompt(rawText, tableText, keyValueText string) string {
	labels := schema.Labels()
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = "'" + string(l) + "'"
	}

	var b strings.Builder
	b.WriteString("You are an expert in understanding and analyzing workers' compensation industry documents.\n\n")
	b.WriteString("You are provided with the document content within the <raw_text>, <key_value_pair_data> and <table_text> xml tags.\n\n")
	b.WriteString("<raw_text>")
	b.WriteString(rawText)
	b.WriteString("</raw_text>\n")
	b.WriteString("<key_value_pair_data>")
	b.WriteString(keyValueText)
	b.WriteString("</key_value_pair_data>\n")
	b.WriteString("<table_text>")
	b.WriteString(tableText)
	b.WriteString("</table_text>\n\n")
	b.WriteString("The raw text of the document is within the <raw_text> xml tag.\n")
	b.WriteString("The key value pairs found in the document are listed one per line within the <key_value_pair_data> xml tag.\n")
	b.WriteString("The tables found in the document are within the <table_text> xml tag.\n\n")
	b.WriteString("Identify the classification type of the document from one of these types: [")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString("].\n")
	b.WriteString("Select the classification type only from the types above. If you cannot identify the document type, answer '")
	b.WriteString(string(schema.Unidentified))
	b.WriteString("'.\n\n")
	b.WriteString("Output format:\n{\"classification_type\": \"<classification_type>\"}\n\n")
	b.WriteString("Generate only the JSON object. Do not add any preamble, explanation or text after the JSON.")
	return b.String()
}
