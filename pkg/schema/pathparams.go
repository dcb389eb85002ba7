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
	"regexp"
	"slices"
)

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// PathParams returns the {name} placeholders of a path template in order of
// first appearance.
func PathParams(path string) []string {
	var params []string
	for _, m := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		if !slices.Contains(params, m[1]) {
			params = append(params, m[1])
		}
	}
	return params
}

// IsPathParam reports whether name is a placeholder of path.
func IsPathParam(name, path string) bool {
	return slices.Contains(PathParams(path), name)
}

// PathParamDescription is the description given to synthesized path properties.
func PathParamDescription(name string) string {
	return "Path parameter: " + name
}

// PathParamSchema returns the synthesized schema for a path placeholder.
func PathParamSchema(name string) *Schema {
	s := New(TypeString)
	s.SetDescription(PathParamDescription(name))
	return s
}

// ReconcilePathParams returns a copy of s in which every placeholder of path is
// a required property. Missing placeholders get a string schema. Path
// properties come first; a property that already exists keeps its definition.
// Properties whose placeholder was removed from the path are left in place.
// The input schema is not modified, and reconciling twice is a no-op.
func ReconcilePathParams(s *Schema, path string) *Schema {
	params := PathParams(path)
	if s == nil {
		s = NewObject()
	}
	if len(params) == 0 {
		return s
	}

	out := *s
	if out.Type == "" {
		out.Type = TypeObject
	}
	out.Properties = NewProperties()
	for _, p := range params {
		if existing, ok := s.Property(p); ok {
			out.Properties.Set(p, existing)
		} else {
			out.Properties.Set(p, PathParamSchema(p))
		}
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if _, ok := out.Properties.Get(pair.Key); !ok {
				out.Properties.Set(pair.Key, pair.Value)
			}
		}
	}

	var missing []string
	for _, p := range params {
		if !s.IsRequired(p) {
			missing = append(missing, p)
		}
	}
	out.Required = append(missing, s.Required...)
	if out.Required == nil {
		out.Required = []string{}
	}
	return &out
}

// MissingPathParams lists placeholders of path that s does not define.
func MissingPathParams(s *Schema, path string) []string {
	var missing []string
	for _, p := range PathParams(path) {
		if _, ok := s.Property(p); !ok {
			missing = append(missing, p)
		}
	}
	return missing
}
