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

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
)

func validProject() *core.Project {
	return &core.Project{
		ID:      "p-1",
		Name:    "My  Weather Server",
		Version: "1.0.0",
		APIs:    []core.API{{ID: "api-1", Name: "Weather", BaseURL: "https://api.example.com"}},
		Tools: []core.Tool{{
			ID: "t-1", APIID: "api-1", Name: "get_forecast", Description: "Forecast",
			Enabled: true, Method: core.MethodGet, Path: "/forecast",
			RequestSchema: schema.MustParse(`{"type":"object","properties":{"city":{"type":"string"}}}`),
		}},
		AuthSchemes: []core.AuthScheme{},
		Resources:   []core.Resource{},
	}
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.Project)
		blocked bool
	}{
		{name: "valid", mutate: func(*core.Project) {}},
		{name: "warnings only", mutate: func(p *core.Project) { p.Tools[0].Description = "" }},
		{name: "missing api", mutate: func(p *core.Project) { p.Tools[0].APIID = "gone" }, blocked: true},
		{name: "incomplete oauth", mutate: func(p *core.Project) {
			p.AuthSchemes = append(p.AuthSchemes, core.AuthScheme{ID: "a", Name: "oauth", Type: core.AuthTypeOAuth2})
		}, blocked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProject()
			tt.mutate(p)
			_, err := Preflight(p)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBlocked))
			var blocked *BlockedError
			require.ErrorAs(t, err, &blocked)
			assert.NotEmpty(t, blocked.Issues)
		})
	}
}

func TestClaudeDesktopConfig(t *testing.T) {
	data, err := ClaudeDesktopConfig(validProject(), "/srv/weather")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mcpServers": {
			"my-weather-server": {"command": "node", "args": ["/srv/weather/dist/index.js"]}
		}
	}`, string(data))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	result, err := Write(validProject(), dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, result.Files, 2)

	snapshot, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	require.NoError(t, err)
	p, err := core.UnmarshalProject(snapshot)
	require.NoError(t, err)
	assert.Equal(t, "My  Weather Server", p.Name)

	claude, err := os.ReadFile(filepath.Join(dir, ClaudeConfigFile))
	require.NoError(t, err)
	var decoded claudeConfig
	require.NoError(t, json.Unmarshal(claude, &decoded))
	assert.Equal(t, []string{filepath.ToSlash(filepath.Join(result.Dir, Entrypoint))}, decoded.MCPServers["my-weather-server"].Args)
}

func TestWrite_Blocked(t *testing.T) {
	p := validProject()
	p.Tools[0].APIID = "gone"
	dir := filepath.Join(t.TempDir(), "out")

	_, err := Write(p, dir, nil)
	assert.ErrorIs(t, err, ErrBlocked)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "my-weather-server-mcp-server.zip", ArchiveName(validProject()))
}
