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

package openapi

import (
	"encoding/json"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// LibopenAPIAdapter contains the libopenapi specific code: building the
// document model and turning its schemas into self-contained schema trees.
type LibopenAPIAdapter struct {
	logger *zap.Logger
}

// NewLibopenAPIAdapter creates a new adapter instance
func NewLibopenAPIAdapter(logger *zap.Logger) *LibopenAPIAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibopenAPIAdapter{logger: logger}
}

// BuildModel parses an OpenAPI 3 document. References to other files and
// URLs are followed relative to loc. In strict mode any model error fails the
// build; otherwise errors are logged and the partial model is used.
func (a *LibopenAPIAdapter) BuildModel(data []byte, loc Location, strict bool) (*libopenapi.DocumentModel[v3.Document], error) {
	config := datamodel.NewDocumentConfiguration()
	config.AllowFileReferences = true
	config.AllowRemoteReferences = true
	config.IgnorePolymorphicCircularReferences = true
	config.IgnoreArrayCircularReferences = true
	if loc.BaseURL != nil {
		config.BaseURL = loc.BaseURL
	}
	if loc.BasePath != "" {
		config.BasePath = loc.BasePath
	}

	document, err := libopenapi.NewDocumentWithConfiguration(data, config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}

	model, errs := document.BuildV3Model()
	if len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		if strict || model == nil {
			return nil, errors.Errorf("OpenAPI model errors: %s", strings.Join(messages, "; "))
		}
		a.logger.Warn("OpenAPI model warnings (permissive mode)",
			zap.Int("count", len(errs)),
			zap.Strings("warnings", messages))
	}
	return model, nil
}

// schemaConverter turns libopenapi schema proxies into schema trees with all
// references inlined. A reference that leads back to a schema still being
// converted becomes a pointer to it, so recursive types form a cycle instead of
// an infinite tree.
type schemaConverter struct {
	active map[string]*schema.Schema
}

func newSchemaConverter() *schemaConverter {
	return &schemaConverter{active: make(map[string]*schema.Schema)}
}

func (c *schemaConverter) convert(proxy *base.SchemaProxy) (*schema.Schema, error) {
	if proxy == nil {
		return nil, nil
	}
	ref := proxy.GetReference()
	if ref != "" {
		if s, ok := c.active[ref]; ok {
			return s, nil
		}
	}

	hs := proxy.Schema()
	if hs == nil {
		if err := proxy.GetBuildError(); err != nil {
			return nil, errors.Wrapf(err, "failed to build schema %s", ref)
		}
		return nil, errors.Errorf("unresolved schema %s", ref)
	}

	if inline, err := hs.RenderInline(); err == nil {
		out, err := schema.FromYAML(inline)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read rendered schema")
		}
		singleTypes(out, map[*schema.Schema]bool{})
		return out, nil
	}

	// A cycle below this node stops inline rendering. Render this level with
	// references left in place and resolve properties and items one by one.
	rendered, err := hs.Render()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to render schema %s", ref)
	}
	out, err := schema.FromYAML(rendered)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rendered schema")
	}
	singleTypes(out, map[*schema.Schema]bool{})
	if ref != "" {
		c.active[ref] = out
		defer delete(c.active, ref)
	}

	if hs.Properties != nil {
		for pair := hs.Properties.First(); pair != nil; pair = pair.Next() {
			child, err := c.convert(pair.Value())
			if err != nil {
				return nil, err
			}
			if child != nil {
				out.SetProperty(pair.Key(), child)
			}
		}
	}
	if hs.Items != nil && hs.Items.IsA() {
		child, err := c.convert(hs.Items.A)
		if err != nil {
			return nil, err
		}
		if child != nil {
			out.Items = child
		}
	}
	return out, nil
}

// singleTypes turns a one element type list, as rendered for OpenAPI 3.1
// models, back into a plain type name.
func singleTypes(s *schema.Schema, seen map[*schema.Schema]bool) {
	if s == nil || s.Raw != nil || seen[s] {
		return
	}
	seen[s] = true
	if raw, ok := s.ExtraValue(schema.KeyType); ok {
		var types []string
		if json.Unmarshal(raw, &types) == nil && len(types) == 1 {
			s.Set(schema.KeyType, mustMarshal(types[0]))
		}
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			singleTypes(pair.Value, seen)
		}
	}
	singleTypes(s.Items, seen)
}

func mustMarshal(v string) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
