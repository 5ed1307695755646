package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a document's top level is not a section.
var ErrNotObject = errors.New("extracted entities must be a JSON object of sections")

// Parse decodes a JSON document into a tree, keeping key order.
func Parse(data []byte) (*Tree, error) {
	const op = "entity.Parse"

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	root, ok := n.(*Section)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotObject)
	}
	return &Tree{Root: root}, nil
}

// MarshalJSON encodes the tree in declaration order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	root := t.Root
	if root == nil {
		root = NewSection()
	}
	if err := encodeNode(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tree) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// String returns the JSON encoding, or an empty object if encoding fails.
func (t *Tree) String() string {
	b, err := t.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}

type member struct {
	key string
	raw json.RawMessage
}

func decodeNode(raw json.RawMessage) (Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty JSON value")
	}

	switch trimmed[0] {
	case '{':
		members, err := decodeMembers(trimmed)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if m.key == keyValue {
				return leafFromMembers(members), nil
			}
		}
		sec := NewSection()
		for _, m := range members {
			child, err := decodeNode(m.raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", m.key, err)
			}
			sec.Set(m.key, child)
		}
		return sec, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		list := &List{Items: make([]Node, 0, len(items))}
		for i, item := range items {
			child, err := decodeNode(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list.Items = append(list.Items, child)
		}
		return list, nil
	default:
		return &Scalar{Raw: cloneRaw(trimmed)}, nil
	}
}

func decodeMembers(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, raw: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func leafFromMembers(members []member) *Leaf {
	leaf := &Leaf{}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if !seen[m.key] {
			leaf.keys = append(leaf.keys, m.key)
			seen[m.key] = true
		}
		switch m.key {
		case keyValue:
			leaf.Value = decodeValue(m.raw)
		case keyConfidence:
			leaf.confidence = cloneRaw(bytes.TrimSpace(m.raw))
		default:
			if leaf.attrs == nil {
				leaf.attrs = make(map[string]json.RawMessage)
			}
			leaf.attrs[m.key] = cloneRaw(m.raw)
		}
	}
	return leaf
}

func encodeNode(buf *bytes.Buffer, n Node) error {
	switch v := n.(type) {
	case *Section:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := encodeNode(buf, v.children[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case *List:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Leaf:
		return encodeLeaf(buf, v)
	case *Scalar:
		if len(v.Raw) == 0 {
			buf.WriteString("null")
			return nil
		}
		buf.Write(v.Raw)
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

func encodeLeaf(buf *bytes.Buffer, l *Leaf) error {
	keys := l.keys
	hasValue := false
	for _, k := range keys {
		if k == keyValue {
			hasValue = true
			break
		}
	}
	if !hasValue {
		keys = append([]string{keyValue}, keys...)
	}

	buf.WriteByte('{')
	first := true
	for _, k := range keys {
		var raw []byte
		switch k {
		case keyValue:
			b, err := l.Value.MarshalJSON()
			if err != nil {
				return err
			}
			raw = b
		case keyConfidence:
			if l.confidence == nil {
				continue
			}
			raw = l.confidence
		default:
			a, ok := l.attrs[k]
			if !ok {
				continue
			}
			raw = a
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeString(buf, k)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
