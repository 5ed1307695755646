package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type validator struct {
	compiled *jsonschema.Schema
}

// JSONSchema describes the shape of a valid extraction result: every present
// section must have its declared shape and every present field must be an
// object carrying a value. Sections and fields may be omitted.
func (s *Schema) JSONSchema() map[string]any {
	sections := make(map[string]any, len(s.Sections))
	for _, sec := range s.Sections {
		fields := make(map[string]any, len(sec.Fields))
		for _, f := range sec.Fields {
			fields[f.Name] = map[string]any{
				"type":     "object",
				"required": []any{"value"},
				"properties": map[string]any{
					"value": map[string]any{
						"type": []any{"string", "number", "object", "null"},
					},
				},
			}
		}
		record := map[string]any{
			"type":       "object",
			"properties": fields,
		}
		if sec.Shape == ShapeList {
			sections[sec.Name] = map[string]any{
				"type":  "array",
				"items": record,
			}
			continue
		}
		sections[sec.Name] = record
	}

	return map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"title":      string(s.Label),
		"type":       "object",
		"properties": sections,
	}
}

// Validate checks an extraction result against the schema.
func (s *Schema) Validate(data []byte) error {
	const op = "schema.Validate"

	s.validatorOnce.Do(func() {
		s.validator, s.validatorErr = compile(s)
	})
	if s.validatorErr != nil {
		return fmt.Errorf("%s: %w", op, s.validatorErr)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%s: unmarshal data: %w", op, err)
	}
	if err := s.validator.compiled.Validate(v); err != nil {
		return fmt.Errorf("%s: %s result does not match schema: %w", op, s.Label, err)
	}
	return nil
}

func compile(s *Schema) (*validator, error) {
	b, err := json.Marshal(s.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := fmt.Sprintf("%s.schema.json", s.Label)
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &validator{compiled: compiled}, nil
}
