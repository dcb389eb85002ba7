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

package example

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

func TestImport_PathParamsOnly(t *testing.T) {
	result, err := Import(Input{
		APIName: "Items",
		BaseURL: "https://items.example.com",
		Method:  core.MethodGet,
		Path:    "/items/{id}",
	})
	require.NoError(t, err)

	require.Len(t, result.Tools, 1)
	tool := result.Tools[0]
	assert.Equal(t, "get_items_id", tool.Name)
	assert.Equal(t, Description, tool.Description)
	assert.Equal(t, result.API.ID, tool.APIID)
	assert.True(t, tool.Guardrails.ReadOnly)
	assert.False(t, tool.Guardrails.ConfirmationRequired)
	assert.Equal(t, []string{"id"}, tool.RequestSchema.PropertyNames())
	assert.Equal(t, []string{"id"}, tool.RequestSchema.Required)

	data, err := json.Marshal(tool.ResponseSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(data))
}

func TestImport_MergesRequestExample(t *testing.T) {
	result, err := Import(Input{
		APIName:  "Items",
		BaseURL:  "https://items.example.com",
		Method:   core.MethodPost,
		Path:     "/lists/{listId}/items",
		Request:  []byte(`{"title": "milk", "count": 2}`),
		Response: []byte(`{"id": "abc"}`),
	})
	require.NoError(t, err)

	tool := result.Tools[0]
	assert.Equal(t, "post_lists_listId_items", tool.Name)
	assert.Equal(t, []string{"listId", "title", "count"}, tool.RequestSchema.PropertyNames())
	assert.Equal(t, []string{"listId", "title", "count"}, tool.RequestSchema.Required)
	assert.True(t, tool.Guardrails.ConfirmationRequired)
	assert.Equal(t, []string{"id"}, tool.ResponseSchema.PropertyNames())
}

func TestImport_NoPathParams(t *testing.T) {
	result, err := Import(Input{
		APIName: "Items",
		BaseURL: "https://items.example.com",
		Method:  core.MethodPut,
		Path:    "/items",
		Request: []byte("  \n  "),
	})
	require.NoError(t, err)

	data, err := json.Marshal(result.Tools[0].RequestSchema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(data))
}

func TestImport_Errors(t *testing.T) {
	valid := Input{APIName: "A", BaseURL: "https://a", Method: core.MethodGet, Path: "/a"}

	tests := []struct {
		name   string
		modify func(*Input)
		want   string
	}{
		{"missing name", func(in *Input) { in.APIName = "" }, "API Name is required"},
		{"missing base url", func(in *Input) { in.BaseURL = "" }, "Base URL is required"},
		{"missing path", func(in *Input) { in.Path = "" }, "Path is required"},
		{"bad method", func(in *Input) { in.Method = "HEAD" }, "Method must be one of GET, POST, PUT, DELETE, PATCH"},
		{"bad request", func(in *Input) { in.Request = []byte("{nope") }, "Invalid Request JSON"},
		{"bad response", func(in *Input) { in.Response = []byte("[1,") }, "Invalid Response JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			result, err := Import(in)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestToolName(t *testing.T) {
	assert.Equal(t, "delete_users__id__tags", ToolName(core.MethodDelete, "/users/{id}/tags/"))
	assert.Equal(t, "patch_v1_a_b", ToolName(core.MethodPatch, "v1/a-b"))
}

func TestSource_Command(t *testing.T) {
	dir := t.TempDir()
	reqFile := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(reqFile, []byte(`{"name": "x"}`), 0o600))

	var got *sources.ImportResult
	cmd := Source{}.Command(func(_ context.Context, r *sources.ImportResult) error {
		got = r
		return nil
	})
	err := cmd.Run(context.Background(), []string{
		"example", "--name", "Things", "--base-url", "https://things.example.com",
		"--method", "post", "--path", "/things", "--request", reqFile,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Things", got.API.Name)
	assert.Equal(t, core.MethodPost, got.Tools[0].Method)
	assert.Equal(t, []string{"name"}, got.Tools[0].RequestSchema.PropertyNames())
}
