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
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/validation"
)

func newKinLoader(ctx context.Context) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx
	return loader
}

func loadKin(ctx context.Context, data []byte, loc Location) (*openapi3.T, error) {
	loader := newKinLoader(ctx)
	var location *url.URL
	switch {
	case loc.BaseURL != nil:
		u := *loc.BaseURL
		u.Path = u.Path + "/openapi"
		location = &u
	case loc.BasePath != "":
		location = &url.URL{Path: filepath.ToSlash(filepath.Join(loc.BasePath, "openapi"))}
	}
	doc, err := loader.LoadFromDataWithPath(data, location)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load OpenAPI document")
	}
	return doc, nil
}

// validateStrict runs the full OpenAPI 3 validation.
func validateStrict(ctx context.Context, data []byte, loc Location) error {
	doc, err := loadKin(ctx, data, loc)
	if err != nil {
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return errors.Wrap(err, "OpenAPI validation failed")
	}
	return nil
}

// Lint reports validation errors and the gaps that make imported tools hard
// to use: missing operation ids, summaries and servers. It never fails on a
// document that loads; validation errors are returned as issues.
func (i *Importer) Lint(ctx context.Context, req Request) ([]validation.Issue, error) {
	data, loc, err := i.load(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := loadKin(ctx, data, loc)
	if err != nil {
		return nil, err
	}

	var issues []validation.Issue
	if err := doc.Validate(ctx); err != nil {
		issues = append(issues, validation.Issue{Severity: validation.SeverityError, Message: err.Error()})
	}
	if len(doc.Servers) == 0 {
		issues = append(issues, validation.Issue{
			Severity: validation.SeverityWarning,
			Message:  "No servers defined; the API base URL will be empty.",
		})
	}
	if doc.Paths == nil {
		return issues, nil
	}

	for _, p := range doc.Paths.InMatchingOrder() {
		item := doc.Paths.Value(p)
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			op := ops[m]
			ctxName := fmt.Sprintf("%s %s", m, p)
			if op.OperationID == "" {
				issues = append(issues, validation.Issue{
					Severity: validation.SeverityWarning,
					Message:  "Operation has no operationId; the tool name is derived from the path.",
					Context:  ctxName,
				})
			}
			if op.Summary == "" && op.Description == "" {
				issues = append(issues, validation.Issue{
					Severity: validation.SeverityWarning,
					Message:  "Operation has no summary or description.",
					Context:  ctxName,
				})
			}
		}
	}
	return issues, nil
}
