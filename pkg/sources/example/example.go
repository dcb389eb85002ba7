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

// Package example builds an API and a single tool from a hand written request
// and response example.
package example

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

// Description is given to every tool created from an example.
const Description = "Imported via JSON example"

var (
	// ErrInvalidRequestJSON is returned when the request example does not parse.
	ErrInvalidRequestJSON = errors.New("Invalid Request JSON")
	// ErrInvalidResponseJSON is returned when the response example does not parse.
	ErrInvalidResponseJSON = errors.New("Invalid Response JSON")

	newID = uuid.NewString

	validate = validator.New()

	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// fieldMessages maps a failed field to the message shown for it.
var fieldMessages = map[string]string{
	"APIName": "API Name is required",
	"BaseURL": "Base URL is required",
	"Path":    "Path is required",
	"Method":  "Method must be one of GET, POST, PUT, DELETE, PATCH",
}

// Input is one example. Request and Response hold JSON text; blank text means
// no example.
type Input struct {
	APIName  string      `validate:"required"`
	BaseURL  string      `validate:"required"`
	Method   core.Method `validate:"required,oneof=GET POST PUT DELETE PATCH"`
	Path     string      `validate:"required"`
	Request  []byte
	Response []byte
}

// Import turns an example into an API with one tool. The request example
// becomes the input schema, with the path placeholders added first as
// required string properties.
func Import(in Input) (*sources.ImportResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, inputError(err)
	}

	request, err := inferOptional(in.Request, ErrInvalidRequestJSON)
	if err != nil {
		return nil, err
	}
	response, err := inferOptional(in.Response, ErrInvalidResponseJSON)
	if err != nil {
		return nil, err
	}

	request = withPathParams(request, in.Path)
	if request == nil {
		request = schema.NewObject()
	}
	if response == nil {
		response = schema.NewObject()
	}

	api := core.API{ID: newID(), Name: in.APIName, BaseURL: in.BaseURL}
	tool := core.Tool{
		ID:             newID(),
		APIID:          api.ID,
		Name:           ToolName(in.Method, in.Path),
		Description:    Description,
		Enabled:        true,
		Method:         in.Method,
		Path:           in.Path,
		RequestSchema:  request,
		ResponseSchema: response,
		Guardrails: core.Guardrails{
			ReadOnly:             in.Method == core.MethodGet,
			ConfirmationRequired: in.Method != core.MethodGet,
		},
	}
	return &sources.ImportResult{
		API:         api,
		Tools:       []core.Tool{tool},
		AuthSchemes: []core.AuthScheme{},
	}, nil
}

// ToolName joins the lower case method and the path, with every character
// that is not a letter or digit replaced by an underscore and the outer
// underscores trimmed.
func ToolName(method core.Method, path string) string {
	return strings.ToLower(string(method)) + "_" + strings.Trim(nonAlnum.ReplaceAllString(path, "_"), "_")
}

// Commit imports in and hands the result to commit.
func Commit(ctx context.Context, in Input, commit sources.Commit) error {
	result, err := Import(in)
	if err != nil {
		return err
	}
	return commit(ctx, result)
}

func inputError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := fieldMessages[fieldErrs[0].Field()]; ok {
			return errors.New(msg)
		}
	}
	return errors.Wrap(err, "invalid example")
}

func inferOptional(data []byte, invalid error) (*schema.Schema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	s, err := schema.InferJSON(data)
	if err != nil {
		return nil, invalid
	}
	return s, nil
}

func withPathParams(s *schema.Schema, path string) *schema.Schema {
	params := schema.PathParams(path)
	if len(params) == 0 {
		return s
	}
	out := schema.NewObject()
	required := make([]string, 0, len(params))
	for _, p := range params {
		out.Properties.Set(p, schema.PathParamSchema(p))
		required = append(required, p)
	}
	if s != nil && s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			out.Properties.Set(pair.Key, pair.Value)
		}
	}
	if s != nil {
		for _, r := range s.Required {
			if !contains(required, r) {
				required = append(required, r)
			}
		}
	}
	out.Required = required
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
