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

package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pkg/errors"
)

// ErrInvalidJSON is returned when text does not parse as JSON.
var ErrInvalidJSON = errors.New("Invalid JSON syntax")

// InvalidSchemaError lists the structural problems found in a schema.
type InvalidSchemaError struct {
	Problems []string
}

func (e *InvalidSchemaError) Error() string {
	return strings.Join(e.Problems, "; ")
}

// Check returns the structural problems of s. A nil result means s is usable
// as a tool schema.
func Check(s *Schema) []string {
	if s == nil || s.Raw != nil {
		return []string{"Schema must be an object"}
	}
	var problems []string
	if raw, ok := s.ExtraValue(KeyType); ok {
		problems = append(problems, fmt.Sprintf("Invalid type %s in schema", string(raw)))
	} else if s.Type != "" && !s.Type.IsValid() {
		problems = append(problems, fmt.Sprintf("Invalid type %q in schema", string(s.Type)))
	}
	if len(problems) > 0 {
		return problems
	}
	if err := Resolve(s); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// Resolve compiles s with the JSON Schema validator, which catches malformed
// keywords and dangling references.
func Resolve(s *Schema) error {
	_, err := compile(s)
	return err
}

// ValidateInstance checks a decoded JSON value against s.
func ValidateInstance(s *Schema, instance any) error {
	if s.IsEmpty() {
		return nil
	}
	resolved, err := compile(s)
	if err != nil {
		return err
	}
	if err := resolved.Validate(instance); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func compile(s *Schema) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema")
	}
	var js jsonschema.Schema
	if err := json.Unmarshal(data, &js); err != nil {
		return nil, errors.Wrap(err, "failed to read schema")
	}
	resolved, err := js.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve schema")
	}
	return resolved, nil
}

// RawEditor backs the free-text schema editor. It keeps the last schema that
// parsed and passed Check; a bad draft never replaces it.
type RawEditor struct {
	committed *Schema
	draft     string
	err       error
}

// NewRawEditor starts an editor on s.
func NewRawEditor(s *Schema) *RawEditor {
	e := &RawEditor{}
	e.Reset(s)
	return e
}

// Reset replaces both the committed schema and the draft, as when the schema
// changes from outside the editor.
func (e *RawEditor) Reset(s *Schema) {
	e.committed = s
	e.err = nil
	text, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		e.draft = ""
		return
	}
	e.draft = string(text)
}

// SetDraft records text and, if it is a valid schema, commits it. The returned
// schema is the committed one either way.
func (e *RawEditor) SetDraft(text string) (*Schema, error) {
	e.draft = text
	parsed, err := Parse([]byte(text))
	if err != nil {
		e.err = ErrInvalidJSON
		return e.committed, e.err
	}
	if problems := Check(parsed); len(problems) > 0 {
		e.err = &InvalidSchemaError{Problems: problems}
		return e.committed, e.err
	}
	e.committed = parsed
	e.err = nil
	return parsed, nil
}

// Draft returns the current text.
func (e *RawEditor) Draft() string { return e.draft }

// Committed returns the last good schema.
func (e *RawEditor) Committed() *Schema { return e.committed }

// Err returns the problem with the current draft, if any.
func (e *RawEditor) Err() error { return e.err }

// ValidateSchema returns an *InvalidSchemaError when Check finds problems.
func ValidateSchema(s *Schema) error {
	if problems := Check(s); len(problems) > 0 {
		return &InvalidSchemaError{Problems: problems}
	}
	return nil
}
