// Package models contains domain types for the Carrier Dashboard.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Field is a single key/value pair of a record, kept in the order it was received.
type Field struct {
	Key   string `json:"key" msgpack:"key"`
	Value any    `json:"value" msgpack:"value"` // nil, string, bool, json.Number or json.RawMessage
}

// Record is a carrier record as delivered by the data source.
// Key order is preserved because the pivot header is derived from it.
type Record struct {
	Fields []Field
}

// NewRecord builds a record from ordered fields.
func NewRecord(fields ...Field) Record {
	return Record{Fields: fields}
}

// Keys returns the record's field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.Fields)
}

// Get returns the raw value for key and whether the key is present.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Text returns the value for key coerced to text. Absent and null values yield "".
func (r Record) Text(key string) string {
	v, _ := r.Get(key)
	return TextOf(v)
}

// ID returns the record identifier as text.
func (r Record) ID() string {
	return r.Text("id")
}

// Set replaces the value of an existing key or appends a new field.
func (r *Record) Set(key string, value any) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
}

// Clone returns a deep enough copy that field edits do not leak between copies.
func (r Record) Clone() Record {
	fields := make([]Field, len(r.Fields))
	copy(fields, r.Fields)
	return Record{Fields: fields}
}

// MarshalJSON writes the record as a JSON object with keys in their original order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping its key order. Duplicate keys keep their first
// position and their last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("record: invalid JSON")
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return fmt.Errorf("record: expected a JSON object, got %s", obj.Type)
	}
	r.Fields = nil
	obj.ForEach(func(key, value gjson.Result) bool {
		r.Set(key.String(), ValueOf(value))
		return true
	})
	return nil
}

// ValueOf converts a parsed JSON value to a record value. Numbers keep their literal text.
func ValueOf(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(v.Raw)
	case gjson.String:
		return v.Str
	default:
		return json.RawMessage(v.Raw)
	}
}

// TextOf coerces a record value to its display text.
func TextOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case json.RawMessage:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
