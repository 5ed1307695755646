package entity

import (
	"bytes"
	"encoding/json"
)

const (
	keyValue         = "value"
	keyConfidence    = "confidence"
	keyCurrentValue  = "current_value"
	keyPreviousValue = "previous_value"
)

// ValueKind tells how a leaf value was encoded.
type ValueKind int

const (
	// ValueText is a plain string value.
	ValueText ValueKind = iota
	// ValueVersioned is the legacy {current_value, previous_value} shape with
	// a string current value.
	ValueVersioned
	// ValueOther is any other encoding; it is never scored.
	ValueOther
)

// Value is the content of a leaf's "value" attribute.
type Value struct {
	Kind ValueKind

	// Text is the string for ValueText and the current value for ValueVersioned.
	Text string

	raw json.RawMessage
}

// TextValue returns a plain string value.
func TextValue(s string) Value {
	return Value{Kind: ValueText, Text: s}
}

// VersionedValue returns a value in the {current_value, previous_value} shape.
func VersionedValue(current, previous string) Value {
	var buf bytes.Buffer
	buf.WriteString(`{"current_value":`)
	writeString(&buf, current)
	buf.WriteString(`,"previous_value":`)
	writeString(&buf, previous)
	buf.WriteByte('}')
	return Value{Kind: ValueVersioned, Text: current, raw: buf.Bytes()}
}

// Scalar returns the scorable text of the value.
func (v Value) Scalar() (string, bool) {
	switch v.Kind {
	case ValueText, ValueVersioned:
		return v.Text, true
	default:
		return "", false
	}
}

// MarshalJSON writes the value in its original encoding.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw != nil {
		return v.raw, nil
	}
	if v.Kind == ValueOther {
		return []byte("null"), nil
	}
	return json.Marshal(v.Text)
}

func (v Value) clone() Value {
	return Value{Kind: v.Kind, Text: v.Text, raw: cloneRaw(v.raw)}
}

func decodeValue(raw json.RawMessage) Value {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Value{Kind: ValueText, Text: s}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		if cur, ok := obj[keyCurrentValue]; ok {
			if err := json.Unmarshal(cur, &s); err == nil {
				return Value{Kind: ValueVersioned, Text: s, raw: cloneRaw(raw)}
			}
		}
	}
	return Value{Kind: ValueOther, raw: cloneRaw(raw)}
}
