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

// Package form projects a tool schema onto an editable list of property fields
// and back. The schema stays the source of truth: every edit parses the current
// schema, changes the fields and builds a fresh schema.
package form

import (
	"encoding/json"

	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// MaxEditableDepth is the number of property levels the structural editor can
// change: top-level properties and their direct children.
const MaxEditableDepth = 2

// CustomField is a schema key the editor does not interpret.
type CustomField struct {
	Key   string
	Value json.RawMessage
}

// PropertyField is the editable form of one schema property.
type PropertyField struct {
	Name        string
	Type        schema.Type
	Description string
	Required    bool

	MinLength *int
	MaxLength *int
	Pattern   string
	Minimum   *json.Number
	Maximum   *json.Number

	CustomFields []CustomField

	// NestedProperties holds the editable children of a top-level object
	// property. Nil means the property has no properties key.
	NestedProperties []PropertyField

	// Opaque carries the properties and required list found below the editable
	// depth. They are written back unchanged.
	Opaque *schema.Schema

	// ItemsSchema is an array property's items, kept as a blob.
	ItemsSchema *schema.Schema

	// Verbatim is set for a property whose definition is not a JSON object.
	Verbatim *schema.Schema
}

// CustomValue returns the raw value of a custom field.
func (f *PropertyField) CustomValue(key string) (json.RawMessage, bool) {
	for _, c := range f.CustomFields {
		if c.Key == key {
			return c.Value, true
		}
	}
	return nil, false
}

func (f PropertyField) stringish() bool {
	return f.Type == schema.TypeString || f.Type == ""
}

func (f PropertyField) numeric() bool {
	return f.Type.IsNumeric() || f.Type == ""
}

func (f PropertyField) objectish() bool {
	return f.Type == schema.TypeObject || f.Type == ""
}

func (f PropertyField) arrayish() bool {
	return f.Type == schema.TypeArray || f.Type == ""
}

// ParseToFields lists the properties of s in insertion order.
func ParseToFields(s *schema.Schema) []PropertyField {
	if s == nil || s.Properties == nil {
		return []PropertyField{}
	}
	return parseProperties(s, 0)
}

func parseProperties(parent *schema.Schema, depth int) []PropertyField {
	fields := make([]PropertyField, 0, parent.Properties.Len())
	for pair := parent.Properties.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, parseField(pair.Key, pair.Value, parent.IsRequired(pair.Key), depth))
	}
	return fields
}

func parseField(name string, def *schema.Schema, required bool, depth int) PropertyField {
	field := PropertyField{Name: name, Required: required}
	if def == nil || def.Raw != nil {
		field.Verbatim = def
		if def == nil {
			field.Verbatim = &schema.Schema{Raw: json.RawMessage("null")}
		}
		return field
	}

	field.Type = def.Type
	field.Description = def.DescriptionText()

	if field.stringish() {
		field.MinLength = def.MinLength
		field.MaxLength = def.MaxLength
		if def.Pattern != nil {
			field.Pattern = *def.Pattern
		}
	}
	if field.numeric() {
		field.Minimum = def.Minimum
		field.Maximum = def.Maximum
	}

	if field.objectish() && def.Properties != nil {
		if depth+1 < MaxEditableDepth {
			field.NestedProperties = parseProperties(def, depth+1)
		} else {
			field.Opaque = &schema.Schema{Properties: def.Properties, Required: def.Required}
		}
	}

	if field.arrayish() && def.Items != nil {
		field.ItemsSchema = def.Items
	}

	if def.Extra != nil {
		for pair := def.Extra.Oldest(); pair != nil; pair = pair.Next() {
			field.CustomFields = append(field.CustomFields, CustomField{Key: pair.Key, Value: pair.Value})
		}
	}
	return field
}

// BuildSchema assembles an object schema from fields. The result always has
// properties and a required list, which is empty when nothing is required.
func BuildSchema(fields []PropertyField) *schema.Schema {
	out := schema.NewObject()
	out.Required = []string{}
	for _, f := range fields {
		out.Properties.Set(f.Name, buildProperty(f))
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

func buildProperty(f PropertyField) *schema.Schema {
	if f.Verbatim != nil {
		return f.Verbatim
	}

	def := &schema.Schema{Type: f.Type}
	if f.Description != "" {
		def.SetDescription(f.Description)
	}

	if f.stringish() {
		def.MinLength = f.MinLength
		def.MaxLength = f.MaxLength
		if f.Pattern != "" {
			pattern := f.Pattern
			def.Pattern = &pattern
		}
	}
	if f.numeric() {
		def.Minimum = f.Minimum
		def.Maximum = f.Maximum
	}

	if f.objectish() {
		switch {
		case f.NestedProperties != nil:
			def.Properties = schema.NewProperties()
			var required []string
			for _, child := range f.NestedProperties {
				def.Properties.Set(child.Name, buildProperty(child))
				if child.Required {
					required = append(required, child.Name)
				}
			}
			def.Required = required
		case f.Opaque != nil:
			def.Properties = f.Opaque.Properties
			def.Required = f.Opaque.Required
		}
	}

	if f.arrayish() && f.ItemsSchema != nil {
		def.Items = f.ItemsSchema
	}

	for _, c := range f.CustomFields {
		def.Set(c.Key, c.Value)
	}
	return def
}
