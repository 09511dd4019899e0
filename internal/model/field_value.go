package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldValue holds either a single string or, for multi-valued fields,
// a list of strings. The zero value is an empty single string.
type FieldValue struct {
	text   string
	list   []string
	isList bool
}

func Text(s string) FieldValue {
	return FieldValue{text: s}
}

func List(values ...string) FieldValue {
	l := make([]string, len(values))
	copy(l, values)
	return FieldValue{list: l, isList: true}
}

func (v FieldValue) IsList() bool { return v.isList }

// String returns the single value, or "" for list values.
func (v FieldValue) String() string { return v.text }

// Strings returns the list value, or a one-element list for non-empty
// single values.
func (v FieldValue) Strings() []string {
	if v.isList {
		out := make([]string, len(v.list))
		copy(out, v.list)
		return out
	}
	if v.text == "" {
		return nil
	}
	return []string{v.text}
}

func (v FieldValue) IsEmpty() bool {
	if v.isList {
		return len(v.list) == 0
	}
	return v.text == ""
}

// Contains reports whether option is selected.
func (v FieldValue) Contains(option string) bool {
	if !v.isList {
		return v.text == option
	}
	for _, s := range v.list {
		if s == option {
			return true
		}
	}
	return false
}

func (v FieldValue) Equal(o FieldValue) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.text == o.text
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

func (v FieldValue) clone() FieldValue {
	if !v.isList {
		return v
	}
	return List(v.list...)
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.text)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = FieldValue{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var l []string
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("field value: %w", err)
		}
		*v = List(l...)
		return nil
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("field value must be a string or a list of strings: %w", err)
		}
		*v = Text(s)
		return nil
	}
}
