// Copyright 2025 MCP Compiler Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package schema holds the JSON Schema fragment model used for tool request and
// response schemas, together with inference, path-parameter reconciliation and
// raw-edit validation.
package schema

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Type is a JSON Schema type name.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeNull    Type = "null"
)

// Types lists every type the editor recognizes, in display order.
var Types = []Type{TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray, TypeNull}

// IsValid returns true if t is one of the recognized types.
func (t Type) IsValid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray, TypeNull:
		return true
	default:
		return false
	}
}

// IsNumeric returns true for number and integer.
func (t Type) IsNumeric() bool {
	return t == TypeNumber || t == TypeInteger
}

// Recognized schema keys. Anything else is kept in Extra.
const (
	KeyType        = "type"
	KeyDescription = "description"
	KeyProperties  = "properties"
	KeyRequired    = "required"
	KeyItems       = "items"
	KeyMinLength   = "minLength"
	KeyMaxLength   = "maxLength"
	KeyPattern     = "pattern"
	KeyMinimum     = "minimum"
	KeyMaximum     = "maximum"
)

// IsRecognizedKey reports whether key maps onto a typed Schema field.
func IsRecognizedKey(key string) bool {
	switch key {
	case KeyType, KeyDescription, KeyProperties, KeyRequired, KeyItems,
		KeyMinLength, KeyMaxLength, KeyPattern, KeyMinimum, KeyMaximum:
		return true
	default:
		return false
	}
}

// Properties is an insertion-ordered property map.
type Properties = orderedmap.OrderedMap[string, *Schema]

// NewProperties returns an empty property map.
func NewProperties() *Properties {
	return orderedmap.New[string, *Schema]()
}

// Schema is one node of a JSON Schema tree.
//
// Nil pointer and nil slice fields are absent from the JSON form, so an empty
// but present `required: []` survives a round trip. Keys the model does not
// interpret, or recognized keys whose value has an unexpected shape (for
// example an OpenAPI 3.1 type array), are kept verbatim in Extra. A node that
// is not a JSON object at all, such as a boolean schema, is kept in Raw.
type Schema struct {
	Type        Type
	Description *string
	Properties  *Properties
	Required    []string
	Items       *Schema
	MinLength   *int
	MaxLength   *int
	Pattern     *string
	Minimum     *json.Number
	Maximum     *json.Number
	Extra       *orderedmap.OrderedMap[string, json.RawMessage]
	Raw         json.RawMessage
}

// New returns a schema of the given type.
func New(t Type) *Schema {
	return &Schema{Type: t}
}

// NewObject returns {type: object, properties: {}}.
func NewObject() *Schema {
	return &Schema{Type: TypeObject, Properties: NewProperties()}
}

// IsEmpty returns true when the node has no keys at all.
func (s *Schema) IsEmpty() bool {
	return s == nil || (s.Raw == nil && len(s.Keys()) == 0)
}

// Keys returns the keys present on the node in serialization order.
func (s *Schema) Keys() []string {
	if s == nil || s.Raw != nil {
		return nil
	}
	var keys []string
	if s.Type != "" {
		keys = append(keys, KeyType)
	}
	if s.Description != nil {
		keys = append(keys, KeyDescription)
	}
	if s.Properties != nil {
		keys = append(keys, KeyProperties)
	}
	if s.Required != nil {
		keys = append(keys, KeyRequired)
	}
	if s.Items != nil {
		keys = append(keys, KeyItems)
	}
	if s.MinLength != nil {
		keys = append(keys, KeyMinLength)
	}
	if s.MaxLength != nil {
		keys = append(keys, KeyMaxLength)
	}
	if s.Pattern != nil {
		keys = append(keys, KeyPattern)
	}
	if s.Minimum != nil {
		keys = append(keys, KeyMinimum)
	}
	if s.Maximum != nil {
		keys = append(keys, KeyMaximum)
	}
	if s.Extra != nil {
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
	}
	return keys
}

// Property returns the named child property.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// PropertyNames returns the property names in insertion order.
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// SetProperty adds or replaces a property, creating the map when needed.
func (s *Schema) SetProperty(name string, child *Schema) {
	if s.Properties == nil {
		s.Properties = NewProperties()
	}
	s.Properties.Set(name, child)
}

// IsRequired reports whether name appears in the node's required list.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// DescriptionText returns the description or "".
func (s *Schema) DescriptionText() string {
	if s == nil || s.Description == nil {
		return ""
	}
	return *s.Description
}

// SetDescription sets the description.
func (s *Schema) SetDescription(d string) {
	s.Description = &d
}

// ExtraValue returns a custom key's raw value.
func (s *Schema) ExtraValue(key string) (json.RawMessage, bool) {
	if s == nil || s.Extra == nil {
		return nil, false
	}
	return s.Extra.Get(key)
}

// Set assigns a key from its JSON value. Recognized keys land in their typed
// field when the value has the expected shape and in Extra otherwise. The last
// assignment of a key wins.
func (s *Schema) Set(key string, raw json.RawMessage) {
	raw = compact(raw)
	if s.assignTyped(key, raw) {
		if s.Extra != nil {
			s.Extra.Delete(key)
		}
		return
	}
	s.clearTyped(key)
	if s.Extra == nil {
		s.Extra = orderedmap.New[string, json.RawMessage]()
	}
	s.Extra.Set(key, raw)
}

// SetValue marshals v and assigns it under key.
func (s *Schema) SetValue(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode value for %q", key)
	}
	s.Set(key, raw)
	return nil
}

// Delete removes a key wherever it is stored.
func (s *Schema) Delete(key string) {
	s.clearTyped(key)
	if s.Extra != nil {
		s.Extra.Delete(key)
	}
}

func (s *Schema) assignTyped(key string, raw json.RawMessage) bool {
	switch key {
	case KeyType:
		var t string
		if isNull(raw) || json.Unmarshal(raw, &t) != nil {
			return false
		}
		s.Type = Type(t)
	case KeyDescription:
		var d string
		if isNull(raw) || json.Unmarshal(raw, &d) != nil {
			return false
		}
		s.Description = &d
	case KeyProperties:
		if !isObject(raw) {
			return false
		}
		props := NewProperties()
		if json.Unmarshal(raw, props) != nil {
			return false
		}
		s.Properties = props
	case KeyRequired:
		var req []string
		if !isArray(raw) || json.Unmarshal(raw, &req) != nil {
			return false
		}
		if req == nil {
			req = []string{}
		}
		s.Required = req
	case KeyItems:
		if isNull(raw) {
			return false
		}
		items := &Schema{}
		if json.Unmarshal(raw, items) != nil {
			return false
		}
		s.Items = items
	case KeyMinLength, KeyMaxLength:
		var n int
		if isNull(raw) || json.Unmarshal(raw, &n) != nil {
			return false
		}
		if key == KeyMinLength {
			s.MinLength = &n
		} else {
			s.MaxLength = &n
		}
	case KeyPattern:
		var p string
		if isNull(raw) || json.Unmarshal(raw, &p) != nil {
			return false
		}
		s.Pattern = &p
	case KeyMinimum, KeyMaximum:
		// json.Number keeps the literal, so large integer bounds are not rounded.
		var n json.Number
		if isNull(raw) || bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) || json.Unmarshal(raw, &n) != nil {
			return false
		}
		if key == KeyMinimum {
			s.Minimum = &n
		} else {
			s.Maximum = &n
		}
	default:
		return false
	}
	return true
}

func (s *Schema) clearTyped(key string) {
	switch key {
	case KeyType:
		s.Type = ""
	case KeyDescription:
		s.Description = nil
	case KeyProperties:
		s.Properties = nil
	case KeyRequired:
		s.Required = nil
	case KeyItems:
		s.Items = nil
	case KeyMinLength:
		s.MinLength = nil
	case KeyMaxLength:
		s.MaxLength = nil
	case KeyPattern:
		s.Pattern = nil
	case KeyMinimum:
		s.Minimum = nil
	case KeyMaximum:
		s.Maximum = nil
	}
}

// UnmarshalJSON decodes a schema node keeping key order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	*s = Schema{}
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return errors.Wrap(ErrInvalidJSON, "schema")
	}
	if !isObject(trimmed) {
		s.Raw = compact(trimmed)
		return nil
	}
	fields := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(trimmed, fields); err != nil {
		return errors.Wrap(err, "failed to decode schema object")
	}
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		s.Set(pair.Key, pair.Value)
	}
	return nil
}

// MarshalJSON encodes the node. A node reached again while it is still being
// encoded is written as the string "[Circular]".
func (s *Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.encode(&buf, map[*Schema]bool{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CircularMarker replaces a reference cycle in serialized output.
const CircularMarker = "[Circular]"

func (s *Schema) encode(buf *bytes.Buffer, ancestors map[*Schema]bool) error {
	if s == nil {
		buf.WriteString("null")
		return nil
	}
	if ancestors[s] {
		buf.WriteString(`"` + CircularMarker + `"`)
		return nil
	}
	if s.Raw != nil {
		buf.Write(s.Raw)
		return nil
	}
	ancestors[s] = true
	defer delete(ancestors, s)

	w := &objectWriter{buf: buf}
	buf.WriteByte('{')
	if s.Type != "" {
		if err := w.value(KeyType, string(s.Type)); err != nil {
			return err
		}
	}
	if s.Description != nil {
		if err := w.value(KeyDescription, *s.Description); err != nil {
			return err
		}
	}
	if s.Properties != nil {
		w.key(KeyProperties)
		buf.WriteByte('{')
		inner := &objectWriter{buf: buf}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			inner.key(pair.Key)
			if err := pair.Value.encode(buf, ancestors); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	if s.Required != nil {
		if err := w.value(KeyRequired, s.Required); err != nil {
			return err
		}
	}
	if s.Items != nil {
		w.key(KeyItems)
		if err := s.Items.encode(buf, ancestors); err != nil {
			return err
		}
	}
	for _, kv := range []struct {
		key string
		val any
		ok  bool
	}{
		{KeyMinLength, s.MinLength, s.MinLength != nil},
		{KeyMaxLength, s.MaxLength, s.MaxLength != nil},
		{KeyPattern, s.Pattern, s.Pattern != nil},
		{KeyMinimum, s.Minimum, s.Minimum != nil},
		{KeyMaximum, s.Maximum, s.Maximum != nil},
	} {
		if !kv.ok {
			continue
		}
		if err := w.value(kv.key, kv.val); err != nil {
			return err
		}
	}
	if s.Extra != nil {
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			w.key(pair.Key)
			buf.Write(pair.Value)
		}
	}
	buf.WriteByte('}')
	return nil
}

type objectWriter struct {
	buf     *bytes.Buffer
	started bool
}

func (w *objectWriter) key(k string) {
	if w.started {
		w.buf.WriteByte(',')
	}
	w.started = true
	encoded, _ := json.Marshal(k)
	w.buf.Write(encoded)
	w.buf.WriteByte(':')
}

func (w *objectWriter) value(k string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %q", k)
	}
	w.key(k)
	w.buf.Write(encoded)
	return nil
}

// Clone returns a deep copy. Shared and cyclic references keep their shape.
func (s *Schema) Clone() *Schema {
	return s.clone(map[*Schema]*Schema{})
}

func (s *Schema) clone(seen map[*Schema]*Schema) *Schema {
	if s == nil {
		return nil
	}
	if c, ok := seen[s]; ok {
		return c
	}
	c := &Schema{Type: s.Type}
	seen[s] = c
	c.Description = clonePtr(s.Description)
	c.Pattern = clonePtr(s.Pattern)
	c.MinLength = clonePtr(s.MinLength)
	c.MaxLength = clonePtr(s.MaxLength)
	c.Minimum = clonePtr(s.Minimum)
	c.Maximum = clonePtr(s.Maximum)
	if s.Required != nil {
		c.Required = append([]string{}, s.Required...)
	}
	if s.Raw != nil {
		c.Raw = append(json.RawMessage{}, s.Raw...)
	}
	if s.Properties != nil {
		c.Properties = NewProperties()
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			c.Properties.Set(pair.Key, pair.Value.clone(seen))
		}
	}
	c.Items = s.Items.clone(seen)
	if s.Extra != nil {
		c.Extra = orderedmap.New[string, json.RawMessage]()
		for pair := s.Extra.Oldest(); pair != nil; pair = pair.Next() {
			c.Extra.Set(pair.Key, append(json.RawMessage{}, pair.Value...))
		}
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Equal reports whether a and b encode to the same JSON value, ignoring key order.
func Equal(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	var av, bv any
	if json.Unmarshal(ab, &av) != nil || json.Unmarshal(bb, &bv) != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

// Parse decodes a JSON document into a schema.
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MustParse is Parse for literals in tests and defaults.
func MustParse(data string) *Schema {
	s, err := Parse([]byte(data))
	if err != nil {
		panic(err)
	}
	return s
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage{}, raw...)
	}
	return buf.Bytes()
}

func firstByte(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func isObject(raw []byte) bool { return firstByte(raw) == '{' }

func isArray(raw []byte) bool { return firstByte(raw) == '[' }

func isNull(raw []byte) bool { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }
