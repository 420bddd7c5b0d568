// Package model defines the wire schemas exchanged between callers, the
// dispatch facade and native plugins.
//
// Every payload is a JSON object with camelCase keys. Required fields must be
// present and non-null; optional fields are pointers that accept both an
// absent key and an explicit null. Enumerated strings are validated against
// closed sets on both encode and decode.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldError reports a required field that is missing or null.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// EnumError reports a string outside its closed set.
type EnumError struct {
	Enum  string
	Value string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Enum, e.Value)
}

var nullLiteral = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), nullLiteral)
}

// decodeObject checks that data is a JSON object carrying every required
// key with a non-null value, then unmarshals it into v. v must not have an
// UnmarshalJSON method of its own (callers pass a method-less alias).
func decodeObject(data []byte, v any, required ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("expected object, got null")
	}
	for _, name := range required {
		raw, ok := fields[name]
		if !ok {
			return &FieldError{Field: name, Reason: "missing"}
		}
		if isNull(raw) {
			return &FieldError{Field: name, Reason: "null"}
		}
	}
	return json.Unmarshal(data, v)
}

// Decode strictly decodes data into a new T. An empty payload is treated as
// an empty object.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	err := json.Unmarshal(data, &v)
	return v, err
}

// Empty is the unit payload: it encodes as {} and accepts {} or null.
type Empty struct{}

func (e *Empty) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	var fields map[string]json.RawMessage
	return json.Unmarshal(data, &fields)
}

// Validator is implemented by request payloads that carry domain rules
// beyond their schema.
type Validator interface {
	Validate() error
}
