// Package entity models the extracted-entity tree produced by the extraction
// stage and annotated by confidence scoring.
//
// A tree is an ordered, arbitrarily nested structure of sections. Any mapping
// that carries a "value" key is a leaf; every other mapping is a section.
// Arrays are kept as lists and any other JSON value is kept verbatim as a
// scalar, so a tree round-trips through Parse and MarshalJSON without losing
// key order or unknown attributes.
package entity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Node is one element of an extracted-entity tree. The concrete types are
// *Section, *List, *Leaf and *Scalar.
type Node interface {
	isNode()
	clone() Node
}

// Section is a mapping without a "value" key. Children keep declaration order.
type Section struct {
	keys     []string
	children map[string]Node
}

// NewSection returns an empty section.
func NewSection() *Section {
	return &Section{children: make(map[string]Node)}
}

func (*Section) isNode() {}

// Keys returns child names in declaration order.
func (s *Section) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of children.
func (s *Section) Len() int { return len(s.keys) }

// Get returns the named child.
func (s *Section) Get(name string) (Node, bool) {
	n, ok := s.children[name]
	return n, ok
}

// Set adds or replaces a child. New names are appended to the key order.
func (s *Section) Set(name string, n Node) {
	if s.children == nil {
		s.children = make(map[string]Node)
	}
	if _, exists := s.children[name]; !exists {
		s.keys = append(s.keys, name)
	}
	s.children[name] = n
}

func (s *Section) clone() Node {
	c := &Section{
		keys:     make([]string, len(s.keys)),
		children: make(map[string]Node, len(s.children)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.children {
		c.children[k] = v.clone()
	}
	return c
}

// List is a repeatable group of records, e.g. one entry per diagnosis.
type List struct {
	Items []Node
}

func (*List) isNode() {}

func (l *List) clone() Node {
	c := &List{Items: make([]Node, len(l.Items))}
	for i, item := range l.Items {
		c.Items[i] = item.clone()
	}
	return c
}

// Scalar is any JSON value that is neither an object nor an array.
type Scalar struct {
	Raw json.RawMessage
}

func (*Scalar) isNode() {}

func (s *Scalar) clone() Node {
	return &Scalar{Raw: cloneRaw(s.Raw)}
}

// Leaf is a mapping carrying an extracted value.
type Leaf struct {
	Value Value

	// confidence is the raw JSON of the "confidence" attribute, nil when absent.
	confidence json.RawMessage

	// keys holds every attribute name in declaration order; attrs holds the
	// raw JSON of attributes other than value and confidence.
	keys  []string
	attrs map[string]json.RawMessage
}

// NewLeaf returns a leaf holding v.
func NewLeaf(v Value) *Leaf {
	return &Leaf{Value: v, keys: []string{keyValue}}
}

func (*Leaf) isNode() {}

// HasConfidence reports whether the leaf carries a confidence attribute.
func (l *Leaf) HasConfidence() bool { return l.confidence != nil }

// Confidence returns the confidence attribute as text. Percentage strings are
// returned without quotes; other JSON values are returned as raw JSON.
func (l *Leaf) Confidence() string {
	if l.confidence == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(l.confidence, &s); err == nil {
		return s
	}
	return string(l.confidence)
}

// SetConfidence stores a percentage string such as "85%".
func (l *Leaf) SetConfidence(pct string) {
	b, _ := json.Marshal(pct)
	l.confidence = b
	for _, k := range l.keys {
		if k == keyConfidence {
			return
		}
	}
	l.keys = append(l.keys, keyConfidence)
}

// Attr returns the raw JSON of any other attribute.
func (l *Leaf) Attr(name string) (json.RawMessage, bool) {
	raw, ok := l.attrs[name]
	return raw, ok
}

func (l *Leaf) clone() Node {
	c := &Leaf{
		Value:      l.Value.clone(),
		confidence: cloneRaw(l.confidence),
		keys:       make([]string, len(l.keys)),
	}
	copy(c.keys, l.keys)
	if l.attrs != nil {
		c.attrs = make(map[string]json.RawMessage, len(l.attrs))
		for k, v := range l.attrs {
			c.attrs[k] = cloneRaw(v)
		}
	}
	return c
}

// Tree is a whole extracted-entity document. The root is always a section.
type Tree struct {
	Root *Section
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{Root: NewSection()}
}

// Clone returns a deep copy. The copy shares no state with t.
func (t *Tree) Clone() *Tree {
	if t == nil || t.Root == nil {
		return NewTree()
	}
	return &Tree{Root: t.Root.clone().(*Section)}
}

// Lookup follows a dot-joined path through sections.
func (t *Tree) Lookup(path string) (Node, bool) {
	if t == nil || t.Root == nil || path == "" {
		return nil, false
	}
	parts := strings.Split(path, ".")
	cur := t.Root
	for i, part := range parts {
		n, ok := cur.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return n, true
		}
		sec, ok := n.(*Section)
		if !ok {
			return nil, false
		}
		cur = sec
	}
	return nil, false
}

// Walk visits every node depth first in declaration order. path is the
// dot-joined location of n; list items use their index as the path segment.
// Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(path, name string, n Node) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walkSection(t.Root, "", fn)
}

func walkSection(s *Section, prefix string, fn func(path, name string, n Node) bool) {
	for _, k := range s.keys {
		walkNode(s.children[k], joinPath(prefix, k), k, fn)
	}
}

func walkNode(n Node, path, name string, fn func(path, name string, n Node) bool) {
	if !fn(path, name, n) {
		return
	}
	switch v := n.(type) {
	case *Section:
		walkSection(v, path, fn)
	case *List:
		for i, item := range v.Items {
			idx := strconv.Itoa(i)
			walkNode(item, joinPath(path, idx), idx, fn)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	c := make(json.RawMessage, len(raw))
	copy(c, raw)
	return c
}
