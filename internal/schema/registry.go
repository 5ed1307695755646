// Package schema holds the extraction schema and field weights for every
// document classification.
//
// The registry is a declarative table loaded from registry.yaml. Adding a
// document type means adding an entry there; callers look schemas up by label
// and never branch on the label themselves.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
)

// DefaultWeight applies to fields missing from a non-empty weight table.
const DefaultWeight = 0.05

var (
	// ErrUnsupportedClassification is returned when a label has no schema.
	// It is permanent: retrying the same document cannot succeed.
	ErrUnsupportedClassification = errors.New("unsupported document classification")

	// ErrInvalidRegistry is returned when a registry definition is malformed.
	ErrInvalidRegistry = errors.New("invalid schema registry")
)

// ValueType is the expected type of an extracted value.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeDate   ValueType = "date"
)

// Shape tells whether a section is a single record or a repeatable list.
type Shape string

const (
	ShapeObject Shape = "object"
	ShapeList   Shape = "list"
)

// Field describes one extractable value.
type Field struct {
	Name     string    `yaml:"name"`
	Type     ValueType `yaml:"type"`
	Enum     []string  `yaml:"enum"`
	Question string    `yaml:"question"`
}

// Section groups related fields.
type Section struct {
	Name   string  `yaml:"name"`
	Shape  Shape   `yaml:"shape"`
	Fields []Field `yaml:"fields"`
}

// WeightTable maps field names to their importance in the document score.
type WeightTable map[string]float64

// Weight returns the weight for field, or DefaultWeight when it is not listed.
func (w WeightTable) Weight(field string) float64 {
	if v, ok := w[field]; ok {
		return v
	}
	return DefaultWeight
}

// Schema is the extraction template for one document type.
type Schema struct {
	Label             Label       `yaml:"label"`
	Description       string      `yaml:"description"`
	Persona           string      `yaml:"persona"`
	Instructions      []string    `yaml:"instructions"`
	ClaimNumberFields []string    `yaml:"claim_number_fields"`
	Sections          []Section   `yaml:"sections"`
	Weights           WeightTable `yaml:"weights"`

	validatorOnce sync.Once
	validator     *validator
	validatorErr  error
}

// FieldNames returns every field name in declaration order.
func (s *Schema) FieldNames() []string {
	var names []string
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			names = append(names, f.Name)
		}
	}
	return names
}

// Registry maps labels to schemas.
type Registry struct {
	schemas map[Label]*Schema
	order   []Label
}

type registryFile struct {
	Documents []*Schema `yaml:"documents"`
}

//go:embed registry.yaml
var registryYAML []byte

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Load(registryYAML)
})

// Default returns the built-in registry. It panics if the embedded definition
// is invalid, which registry tests guard against.
func Default() *Registry {
	r, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return r
}

// Load parses and validates a registry definition.
func Load(data []byte) (*Registry, error) {
	const op = "schema.Load"

	var file registryFile
	if err := yaml.UnmarshalWithOptions(data, &file, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidRegistry, err)
	}

	r := &Registry{schemas: make(map[Label]*Schema, len(file.Documents))}
	for _, s := range file.Documents {
		if err := normalize(s); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidRegistry, err)
		}
		if _, dup := r.schemas[s.Label]; dup {
			return nil, fmt.Errorf("%s: %w: duplicate label %q", op, ErrInvalidRegistry, s.Label)
		}
		r.schemas[s.Label] = s
		r.order = append(r.order, s.Label)
	}
	return r, nil
}

func normalize(s *Schema) error {
	if !s.Label.Known() {
		return fmt.Errorf("unknown label %q", s.Label)
	}
	if len(s.Sections) == 0 {
		return fmt.Errorf("%s: no sections", s.Label)
	}
	for i := range s.Sections {
		sec := &s.Sections[i]
		if sec.Name == "" {
			return fmt.Errorf("%s: section %d has no name", s.Label, i)
		}
		switch sec.Shape {
		case "":
			sec.Shape = ShapeObject
		case ShapeObject, ShapeList:
		default:
			return fmt.Errorf("%s.%s: unknown shape %q", s.Label, sec.Name, sec.Shape)
		}
		if len(sec.Fields) == 0 {
			return fmt.Errorf("%s.%s: no fields", s.Label, sec.Name)
		}
		for j := range sec.Fields {
			f := &sec.Fields[j]
			if f.Name == "" {
				return fmt.Errorf("%s.%s: field %d has no name", s.Label, sec.Name, j)
			}
			switch f.Type {
			case "":
				f.Type = TypeString
			case TypeString, TypeDate:
			default:
				return fmt.Errorf("%s.%s.%s: unknown type %q", s.Label, sec.Name, f.Name, f.Type)
			}
		}
	}
	for name, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("%s: negative weight for %s", s.Label, name)
		}
	}
	if s.Weights == nil {
		s.Weights = WeightTable{}
	}
	return nil
}

// Labels returns the registered labels in definition order.
func (r *Registry) Labels() []Label {
	out := make([]Label, len(r.order))
	copy(out, r.order)
	return out
}

// SchemaFor returns the schema for l. Unknown labels and Unidentified have none.
func (r *Registry) SchemaFor(l Label) (*Schema, bool) {
	s, ok := r.schemas[l]
	return s, ok
}

// Lookup is SchemaFor with an ErrUnsupportedClassification error on miss.
func (r *Registry) Lookup(l Label) (*Schema, error) {
	s, ok := r.schemas[l]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedClassification, l)
	}
	return s, nil
}

// WeightsFor returns a copy of the weight table for l. Labels without a
// schema get an empty table.
func (r *Registry) WeightsFor(l Label) WeightTable {
	out := WeightTable{}
	s, ok := r.schemas[l]
	if !ok {
		return out
	}
	for k, v := range s.Weights {
		out[k] = v
	}
	return out
}
