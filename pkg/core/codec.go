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

package core

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/schema"
)

var whitespace = regexp.MustCompile(`\s+`)

// Slug lowercases name and replaces each whitespace run with a dash.
func Slug(name string) string {
	return whitespace.ReplaceAllString(strings.ToLower(name), "-")
}

// DefaultFilename derives a project file name from the project name.
func DefaultFilename(name string) string {
	return Slug(name) + ".json"
}

// MarshalProject encodes p as indented JSON. A reference cycle inside a schema
// is written as "[Circular]".
func MarshalProject(p *Project) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode project")
	}
	return data, nil
}

// UnmarshalProject decodes a project document and upgrades older layouts: a
// missing resources list becomes empty, and a legacy prompts array is replaced
// by its first entry as the single prompt.
func UnmarshalProject(data []byte) (*Project, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to parse project")
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "failed to decode project")
	}

	if legacy, ok := fields["prompts"]; ok {
		var prompts []Prompt
		if err := json.Unmarshal(legacy, &prompts); err == nil && len(prompts) > 0 {
			first := prompts[0]
			p.Prompt = &first
		}
	}

	if p.APIs == nil {
		p.APIs = []API{}
	}
	if p.Tools == nil {
		p.Tools = []Tool{}
	}
	if p.AuthSchemes == nil {
		p.AuthSchemes = []AuthScheme{}
	}
	if p.Resources == nil {
		p.Resources = []Resource{}
	}
	return &p, nil
}

// ProjectFileSchema returns the JSON Schema of a project document.
func ProjectFileSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(schema.Schema{}) {
				return &jsonschema.Schema{
					Type:        "object",
					Description: "JSON Schema of a tool request or response",
				}
			}
			return nil
		},
	}
	s := r.Reflect(&Project{})
	s.Title = "MCP server project"
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode project schema")
	}
	return data, nil
}
