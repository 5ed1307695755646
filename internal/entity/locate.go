package entity

import "strings"

// FieldDescriptor is a snapshot of one scorable leaf at scoring time.
type FieldDescriptor struct {
	Path  string `json:"path"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// Locate returns every leaf under nested sections that carries a non-blank
// text value, in declaration order. Lists and scalars are not descended into.
func Locate(t *Tree) []FieldDescriptor {
	if t == nil || t.Root == nil {
		return nil
	}
	var fields []FieldDescriptor
	locateSection(t.Root, "", &fields)
	return fields
}

func locateSection(s *Section, prefix string, out *[]FieldDescriptor) {
	for _, name := range s.keys {
		path := joinPath(prefix, name)
		switch n := s.children[name].(type) {
		case *Leaf:
			text, ok := n.Value.Scalar()
			if !ok {
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			*out = append(*out, FieldDescriptor{Path: path, Field: name, Value: text})
		case *Section:
			locateSection(n, path, out)
		}
	}
}
