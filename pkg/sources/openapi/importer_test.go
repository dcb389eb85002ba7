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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

const usersDoc = `openapi: 3.0.3
info:
  title: Users
  description: User directory
  version: 1.0.0
servers:
  - url: https://api.example.com/v1
components:
  securitySchemes:
    key:
      type: apiKey
      in: header
      name: X-API-Key
    token:
      type: http
      scheme: Bearer
    login:
      type: http
      scheme: basic
    oauth:
      type: oauth2
      flows:
        clientCredentials:
          tokenUrl: https://auth.example.com/token
          scopes: {}
    cookie:
      type: openIdConnect
      openIdConnectUrl: https://auth.example.com/.well-known/openid-configuration
paths:
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        description: User id
        schema:
          type: string
    get:
      operationId: getUser
      summary: Fetch a user
      parameters:
        - name: verbose
          in: query
          description: Verbose output
          schema:
            type: boolean
        - name: X-Trace
          in: header
          schema:
            type: string
      responses:
        "404":
          description: missing
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                properties:
                  name:
                    type: string
        "201":
          description: created
          content:
            application/json:
              schema:
                type: string
    post:
      description: Replace a user
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                id:
                  type: integer
                name:
                  type: string
              required: [name, id]
      responses:
        "204":
          description: done
  /health:
    delete:
      responses:
        "200":
          description: ok
          content:
            text/plain:
              schema:
                type: string
`

func importDoc(t *testing.T, doc string) *sources.ImportResult {
	t.Helper()
	importer := NewImporter(Options{Logger: zaptest.NewLogger(t)})
	result, err := importer.Import(context.Background(), Request{Source: "users.yaml", Data: []byte(doc)})
	require.NoError(t, err)
	return result
}

func schemaJSON(t *testing.T, s *schema.Schema) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func TestImport_API(t *testing.T) {
	result := importDoc(t, usersDoc)

	assert.Equal(t, "Users", result.API.Name)
	assert.Equal(t, "User directory", result.API.Description)
	assert.Equal(t, "https://api.example.com/v1", result.API.BaseURL)
	assert.NotEmpty(t, result.API.ID)

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, result.API.ID, tool.APIID)
		assert.True(t, tool.Enabled)
	}
	assert.Equal(t, []string{"getUser", "post__users_id", "delete__health"}, names)
}

func TestImport_DefaultName(t *testing.T) {
	result := importDoc(t, `openapi: 3.0.3
info:
  title: ""
  version: 1.0.0
paths: {}
`)
	assert.Equal(t, DefaultAPIName, result.API.Name)
	assert.Empty(t, result.API.BaseURL)
	assert.Empty(t, result.Tools)
}

func TestImport_RequestSchemas(t *testing.T) {
	result := importDoc(t, usersDoc)

	t.Run("parameters only", func(t *testing.T) {
		assert.JSONEq(t, `{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "User id"},
				"verbose": {"type": "boolean", "description": "Verbose output"}
			},
			"required": ["id"]
		}`, schemaJSON(t, result.Tools[0].RequestSchema))
	})

	t.Run("body property replaces parameter", func(t *testing.T) {
		s := result.Tools[1].RequestSchema
		assert.Equal(t, []string{"id", "name"}, s.PropertyNames())
		id, ok := s.Property("id")
		require.True(t, ok)
		assert.Equal(t, schema.TypeInteger, id.Type)
		assert.Equal(t, []string{"id", "name"}, s.Required)
	})

	t.Run("nothing to send", func(t *testing.T) {
		assert.JSONEq(t, `{}`, schemaJSON(t, result.Tools[2].RequestSchema))
	})
}

func TestImport_ResponseSchema(t *testing.T) {
	result := importDoc(t, usersDoc)

	assert.JSONEq(t, `{"type":"object","properties":{"name":{"type":"string"}}}`,
		schemaJSON(t, result.Tools[0].ResponseSchema))
	assert.Nil(t, result.Tools[1].ResponseSchema, "2xx without content")
	assert.Nil(t, result.Tools[2].ResponseSchema, "no JSON media type")
}

func TestImport_ResponseCodeOrder(t *testing.T) {
	result := importDoc(t, `openapi: 3.0.3
info:
  title: Orders
  version: 1.0.0
paths:
  /orders:
    post:
      responses:
        "2XX":
          description: any
          content:
            application/json:
              schema:
                type: boolean
        "201":
          description: created
          content:
            application/json:
              schema:
                type: string
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: integer
    get:
      responses:
        "2XX":
          description: any
          content:
            application/json:
              schema:
                type: boolean
        "default":
          description: error
`)
	require.Len(t, result.Tools, 2)
	byName := map[string]*schema.Schema{}
	for _, tool := range result.Tools {
		byName[tool.Name] = tool.ResponseSchema
	}
	assert.JSONEq(t, `{"type":"integer"}`, schemaJSON(t, byName["post__orders"]))
	assert.JSONEq(t, `{"type":"boolean"}`, schemaJSON(t, byName["get__orders"]))
}

func TestOrderCodes(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  []string
	}{
		{"numeric ascending", []string{"204", "201", "200"}, []string{"200", "201", "204"}},
		{"ranges after numbers", []string{"2XX", "202", "2xx", "200"}, []string{"200", "202", "2XX", "2xx"}},
		{"leading zero is not numeric", []string{"0200", "201"}, []string{"201", "0200"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderCodes(tt.codes))
		})
	}
}

func TestImport_ParameterWithoutSchema(t *testing.T) {
	result := importDoc(t, `openapi: 3.0.3
info:
  title: Items
  version: 1.0.0
paths:
  /items/{id}:
    get:
      parameters:
        - name: id
          in: path
          required: true
        - name: filter
          in: query
      responses:
        "200":
          description: ok
`)
	require.Len(t, result.Tools, 1)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"id": {"type": "string"},
			"filter": {"type": "string"}
		},
		"required": ["id"]
	}`, schemaJSON(t, result.Tools[0].RequestSchema))
}

func TestImport_Guardrails(t *testing.T) {
	result := importDoc(t, usersDoc)

	assert.Equal(t, core.Guardrails{ReadOnly: true}, result.Tools[0].Guardrails)
	assert.Equal(t, core.Guardrails{ConfirmationRequired: true}, result.Tools[1].Guardrails)
	assert.Equal(t, "Fetch a user", result.Tools[0].Description)
	assert.Equal(t, "Replace a user", result.Tools[1].Description)
}

func TestImport_SecuritySchemes(t *testing.T) {
	result := importDoc(t, usersDoc)

	require.Len(t, result.AuthSchemes, 4)
	byName := map[string]core.AuthScheme{}
	for _, a := range result.AuthSchemes {
		byName[a.Name] = a
		assert.NotEmpty(t, a.ID)
	}
	assert.Equal(t, core.AuthTypeAPIKey, byName["key"].Type)
	assert.Equal(t, "X-API-Key", byName["key"].Config.HeaderName)
	assert.Equal(t, core.AuthTypeBearer, byName["token"].Type)
	assert.Equal(t, core.AuthTypeBasic, byName["login"].Type)
	assert.Equal(t, core.AuthTypeOAuth2, byName["oauth"].Type)
	assert.Equal(t, []string{}, byName["oauth"].Config.Scopes)
	assert.NotContains(t, byName, "cookie")
}

func TestImport_CircularReference(t *testing.T) {
	result := importDoc(t, `openapi: 3.0.3
info:
  title: Tree
  version: 1.0.0
paths:
  /nodes:
    post:
      operationId: createNode
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Node'
      responses:
        "200":
          description: ok
components:
  schemas:
    Node:
      type: object
      properties:
        name:
          type: string
        children:
          type: array
          items:
            $ref: '#/components/schemas/Node'
`)
	require.Len(t, result.Tools, 1)
	s := result.Tools[0].RequestSchema
	children, ok := s.Property("children")
	require.True(t, ok)
	assert.Same(t, s, children.Items)
	assert.Contains(t, schemaJSON(t, s), `"items":"[Circular]"`)
}

func TestImport_Errors(t *testing.T) {
	importer := NewImporter(Options{Logger: zaptest.NewLogger(t)})

	tests := []struct {
		name string
		req  Request
	}{
		{"not a document", Request{Data: []byte("{{{ not: [valid")}},
		{"missing file", Request{Source: filepath.Join(t.TempDir(), "missing.yaml")}},
		{"swagger 2", Request{Data: []byte(`{"swagger": "2.0", "info": {"title": "x", "version": "1"}, "paths": {}}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := importer.Import(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Contains(t, err.Error(), "Failed to import OpenAPI: ")
		})
	}
}

func TestImport_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersDoc), 0o600))

	importer := NewImporter(Options{Logger: zaptest.NewLogger(t)})
	result, err := importer.Import(context.Background(), Request{Source: path})
	require.NoError(t, err)
	assert.Len(t, result.Tools, 3)
}

func TestImport_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/specs/users.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(usersDoc))
	}))
	defer srv.Close()

	importer := NewImporter(Options{Logger: zaptest.NewLogger(t), HTTPClient: srv.Client(), DevMode: true})

	result, err := importer.Import(context.Background(), Request{Source: srv.URL + "/specs/users.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "Users", result.API.Name)

	_, err = importer.Import(context.Background(), Request{Source: srv.URL + "/specs/other.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLint(t *testing.T) {
	importer := NewImporter(Options{Logger: zaptest.NewLogger(t)})
	issues, err := importer.Lint(context.Background(), Request{Data: []byte(`openapi: 3.0.3
info:
  title: Bare
  version: 1.0.0
paths:
  /ping:
    get:
      responses:
        "200":
          description: ok
`)})
	require.NoError(t, err)

	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	assert.Contains(t, messages, "No servers defined; the API base URL will be empty.")
	assert.Contains(t, messages, "Operation has no operationId; the tool name is derived from the path.")
	assert.Contains(t, messages, "Operation has no summary or description.")
}

func TestToolName(t *testing.T) {
	tests := []struct {
		method      core.Method
		path        string
		operationID string
		want        string
	}{
		{core.MethodGet, "/users/{id}", "", "get__users_id"},
		{core.MethodPost, "/users", "createUser", "createUser"},
		{core.MethodDelete, "/a/{b}/c", "", "delete__a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, toolName(tt.method, tt.path, tt.operationID))
		})
	}
}
