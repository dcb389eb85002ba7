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

package form

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/schema"
)

var (
	// ErrNestingNotSupported is returned for edits below the editable depth.
	ErrNestingNotSupported = errors.New("Nested objects within nested objects are not yet supported in the UI. You can edit these in the Raw JSON editor.")
	// ErrPathParamLocked is returned when renaming or deleting a path parameter.
	ErrPathParamLocked = errors.New("path parameter names are determined by the URL path")
	// ErrNoSuchField is returned for an index that does not exist.
	ErrNoSuchField = errors.New("no such property")
	// ErrDuplicateName is returned when a rename collides with a sibling.
	ErrDuplicateName = errors.New("a property with this name already exists")
	// ErrEmptyName is returned when a rename would leave a property unnamed.
	ErrEmptyName = errors.New("property name cannot be empty")
	// ErrNotObject is returned when adding a child to a non-object property.
	ErrNotObject = errors.New("only object properties can have nested properties")
)

// Location tells where a request property is sent.
type Location string

const (
	LocationPath  Location = "path"
	LocationQuery Location = "query"
	LocationBody  Location = "body"
)

// Editor applies structural edits to a tool request schema. Path and Method
// describe the owning tool: properties named after a path placeholder are
// locked, and the method decides whether the rest are query or body fields.
//
// Fields are addressed by index: one index for a top-level property, two for a
// child of a top-level object property.
type Editor struct {
	Path   string
	Method string
}

// DisplayField is a field with its index and location, in display order.
type DisplayField struct {
	Index    int
	Location Location
	Field    PropertyField
}

// Sync makes every path parameter a required property of s. It reports
// whether s changed.
func (e Editor) Sync(s *schema.Schema) (*schema.Schema, bool) {
	for _, p := range schema.PathParams(e.Path) {
		if _, ok := s.Property(p); !ok || !s.IsRequired(p) {
			return schema.ReconcilePathParams(s, e.Path), true
		}
	}
	return s, false
}

// Display lists the top-level fields of s with path parameters first.
func (e Editor) Display(s *schema.Schema) []DisplayField {
	fields := ParseToFields(s)
	other := LocationBody
	if strings.EqualFold(e.Method, http.MethodGet) {
		other = LocationQuery
	}
	var pathFields, rest []DisplayField
	for i, f := range fields {
		if e.isLocked(f.Name) {
			pathFields = append(pathFields, DisplayField{Index: i, Location: LocationPath, Field: f})
		} else {
			rest = append(rest, DisplayField{Index: i, Location: other, Field: f})
		}
	}
	return append(pathFields, rest...)
}

func (e Editor) isLocked(name string) bool {
	return e.Path != "" && schema.IsPathParam(name, e.Path)
}

// AddProperty appends a string property. With no index it is added at the top
// level as propertyN; with the index of a top-level object property it is
// added as that property's child nestedPropN.
func (e Editor) AddProperty(s *schema.Schema, parent ...int) (*schema.Schema, error) {
	fields := ParseToFields(s)
	switch len(parent) {
	case 0:
		name := uniqueName("property", len(fields)+1, fields)
		fields = append(fields, PropertyField{Name: name, Type: schema.TypeString})
	case 1:
		p, err := at(fields, parent[0])
		if err != nil {
			return s, err
		}
		if p.Type != schema.TypeObject {
			return s, ErrNotObject
		}
		if p.NestedProperties == nil && p.Opaque == nil {
			p.NestedProperties = []PropertyField{}
		}
		name := uniqueName("nestedProp", len(p.NestedProperties)+1, p.NestedProperties)
		p.NestedProperties = append(p.NestedProperties, PropertyField{Name: name, Type: schema.TypeString})
	default:
		return s, ErrNestingNotSupported
	}
	return BuildSchema(fields), nil
}

// DeleteProperty removes a field. Path parameters cannot be deleted.
func (e Editor) DeleteProperty(s *schema.Schema, index ...int) (*schema.Schema, error) {
	fields := ParseToFields(s)
	switch len(index) {
	case 1:
		f, err := at(fields, index[0])
		if err != nil {
			return s, err
		}
		if e.isLocked(f.Name) {
			return s, ErrPathParamLocked
		}
		fields = append(fields[:index[0]:index[0]], fields[index[0]+1:]...)
	case 2:
		p, err := at(fields, index[0])
		if err != nil {
			return s, err
		}
		if _, err := at(p.NestedProperties, index[1]); err != nil {
			return s, err
		}
		children := p.NestedProperties
		p.NestedProperties = append(children[:index[1]:index[1]], children[index[1]+1:]...)
	default:
		return s, depthError(len(index))
	}
	return BuildSchema(fields), nil
}

// UpdateProperty applies fn to a field. A type change clears the constraints
// that do not apply to the new type. Top-level path parameters keep their name.
func (e Editor) UpdateProperty(s *schema.Schema, fn func(*PropertyField), index ...int) (*schema.Schema, error) {
	fields := ParseToFields(s)
	var siblings []PropertyField
	var f *PropertyField
	switch len(index) {
	case 1:
		target, err := at(fields, index[0])
		if err != nil {
			return s, err
		}
		siblings, f = fields, target
	case 2:
		p, err := at(fields, index[0])
		if err != nil {
			return s, err
		}
		target, err := at(p.NestedProperties, index[1])
		if err != nil {
			return s, err
		}
		siblings, f = p.NestedProperties, target
	default:
		return s, depthError(len(index))
	}

	before := *f
	fn(f)

	if f.Name != before.Name {
		if len(index) == 1 && e.isLocked(before.Name) {
			return s, ErrPathParamLocked
		}
		if f.Name == "" {
			return s, ErrEmptyName
		}
		for i, sib := range siblings {
			if i != index[len(index)-1] && sib.Name == f.Name {
				return s, ErrDuplicateName
			}
		}
	}
	if f.Type != before.Type {
		clearIncompatible(f)
	}
	if f.Verbatim != nil && contentChanged(before, *f) {
		f.Verbatim = nil
	}
	return BuildSchema(fields), nil
}

// RenameProperty changes a field's name.
func (e Editor) RenameProperty(s *schema.Schema, name string, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) { f.Name = name }, index...)
}

// RetypeProperty changes a field's type.
func (e Editor) RetypeProperty(s *schema.Schema, t schema.Type, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) { f.Type = t }, index...)
}

// SetRequired marks a field required or optional.
func (e Editor) SetRequired(s *schema.Schema, required bool, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) { f.Required = required }, index...)
}

// SetDescription changes a field's description. An empty text removes it.
func (e Editor) SetDescription(s *schema.Schema, text string, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) { f.Description = text }, index...)
}

// AddCustomField adds an x-customN key with an empty string value.
func (e Editor) AddCustomField(s *schema.Schema, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) {
		n := len(f.CustomFields) + 1
		key := fmt.Sprintf("x-custom%d", n)
		for hasCustom(f, key) {
			n++
			key = fmt.Sprintf("x-custom%d", n)
		}
		f.CustomFields = append(f.CustomFields, CustomField{Key: key, Value: json.RawMessage(`""`)})
	}, index...)
}

// UpdateCustomField renames oldKey to newKey and sets its value. A custom key
// that names a recognized schema key overrides it in the built schema.
func (e Editor) UpdateCustomField(s *schema.Schema, oldKey, newKey string, value any, index ...int) (*schema.Schema, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return s, errors.Wrap(err, "failed to encode custom field value")
	}
	return e.UpdateProperty(s, func(f *PropertyField) {
		updated := make([]CustomField, 0, len(f.CustomFields)+1)
		replaced := false
		for _, c := range f.CustomFields {
			switch {
			case c.Key == oldKey:
				updated = append(updated, CustomField{Key: newKey, Value: raw})
				replaced = true
			case c.Key == newKey:
				// dropped: the renamed field takes this key
			default:
				updated = append(updated, c)
			}
		}
		if !replaced {
			updated = append(updated, CustomField{Key: newKey, Value: raw})
		}
		f.CustomFields = updated
	}, index...)
}

// DeleteCustomField removes a custom key.
func (e Editor) DeleteCustomField(s *schema.Schema, key string, index ...int) (*schema.Schema, error) {
	return e.UpdateProperty(s, func(f *PropertyField) {
		kept := make([]CustomField, 0, len(f.CustomFields))
		for _, c := range f.CustomFields {
			if c.Key != key {
				kept = append(kept, c)
			}
		}
		f.CustomFields = kept
	}, index...)
}

func clearIncompatible(f *PropertyField) {
	if f.Type != schema.TypeString {
		f.MinLength = nil
		f.MaxLength = nil
		f.Pattern = ""
	}
	if !f.Type.IsNumeric() {
		f.Minimum = nil
		f.Maximum = nil
	}
}

func contentChanged(a, b PropertyField) bool {
	a.Name, b.Name = "", ""
	a.Required, b.Required = false, false
	return !reflect.DeepEqual(a, b)
}

func hasCustom(f *PropertyField, key string) bool {
	_, ok := f.CustomValue(key)
	return ok
}

func at(fields []PropertyField, i int) (*PropertyField, error) {
	if i < 0 || i >= len(fields) {
		return nil, errors.Wrapf(ErrNoSuchField, "index %d", i)
	}
	return &fields[i], nil
}

func depthError(n int) error {
	if n == 0 {
		return errors.Wrap(ErrNoSuchField, "missing index")
	}
	return ErrNestingNotSupported
}

func uniqueName(prefix string, n int, siblings []PropertyField) string {
	for {
		name := fmt.Sprintf("%s%d", prefix, n)
		taken := false
		for _, s := range siblings {
			if s.Name == name {
				taken = true
				break
			}
		}
		if !taken {
			return name
		}
		n++
	}
}
