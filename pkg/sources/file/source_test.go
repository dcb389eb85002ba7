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

package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

func sourceProject(t *testing.T) []byte {
	t.Helper()
	p := &core.Project{
		ID:      "p-1",
		Name:    "Shared",
		Version: "1.0.0",
		APIs: []core.API{
			{ID: "api-1", Name: "Weather", BaseURL: "https://weather.example.com", DefaultAuthID: "auth-1"},
			{ID: "api-2", Name: "Maps", BaseURL: "https://maps.example.com"},
		},
		Tools: []core.Tool{
			{ID: "t-1", APIID: "api-1", Name: "get_forecast", Method: core.MethodGet, Path: "/forecast",
				RequestSchema: schema.MustParse(`{"type":"object","properties":{"city":{"type":"string"}}}`)},
			{ID: "t-2", APIID: "api-1", Name: "post_alert", Method: core.MethodPost, Path: "/alerts", AuthID: "auth-2",
				RequestSchema: schema.MustParse(`{"type":"object"}`)},
			{ID: "t-3", APIID: "api-2", Name: "get_route", Method: core.MethodGet, Path: "/route",
				RequestSchema: schema.MustParse(`{"type":"object"}`)},
		},
		AuthSchemes: []core.AuthScheme{
			{ID: "auth-1", Name: "weather key", Type: core.AuthTypeAPIKey, Config: core.AuthConfig{HeaderName: "X-Key"}},
			{ID: "auth-2", Name: "admin token", Type: core.AuthTypeBearer},
			{ID: "auth-3", Name: "unused", Type: core.AuthTypeBasic},
		},
	}
	data, err := core.MarshalProject(p)
	if err != nil {
		t.Fatalf("MarshalProject() error = %v", err)
	}
	return data
}

func TestSource_Name(t *testing.T) {
	if (Source{}).Name() != "file" {
		t.Errorf("Expected name 'file', got %s", Source{}.Name())
	}
}

func TestImport(t *testing.T) {
	result, err := Import(sourceProject(t), "Weather")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if result.API.Name != "Weather" || result.API.ID == "api-1" {
		t.Errorf("Expected a copy of Weather with a fresh id, got %+v", result.API)
	}
	if len(result.Tools) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(result.Tools))
	}
	if len(result.AuthSchemes) != 2 {
		t.Fatalf("Expected the 2 referenced auth schemes, got %d", len(result.AuthSchemes))
	}

	byName := map[string]core.AuthScheme{}
	for _, a := range result.AuthSchemes {
		if a.ID == "auth-1" || a.ID == "auth-2" {
			t.Errorf("auth scheme %s kept its original id", a.Name)
		}
		byName[a.Name] = a
	}
	if result.API.DefaultAuthID != byName["weather key"].ID {
		t.Errorf("API default auth not remapped: %s", result.API.DefaultAuthID)
	}
	for _, tool := range result.Tools {
		if tool.APIID != result.API.ID {
			t.Errorf("tool %s points at %s, expected %s", tool.Name, tool.APIID, result.API.ID)
		}
		if tool.Name == "post_alert" && tool.AuthID != byName["admin token"].ID {
			t.Errorf("tool auth override not remapped: %s", tool.AuthID)
		}
	}
}

func TestImport_Selection(t *testing.T) {
	tests := []struct {
		name    string
		api     string
		wantErr string
	}{
		{name: "by id", api: "api-2"},
		{name: "ambiguous", api: "", wantErr: "has 2 APIs"},
		{name: "unknown", api: "Billing", wantErr: `has no API "Billing"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Import(sourceProject(t), tt.api)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if result.API.Name != "Maps" || len(result.AuthSchemes) != 0 {
				t.Errorf("unexpected result: %+v", result)
			}
		})
	}
}

func TestSource_Command(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.json")
	if err := os.WriteFile(path, sourceProject(t), 0o600); err != nil {
		t.Fatal(err)
	}

	var committed *sources.ImportResult
	cmd := Source{}.Command(func(_ context.Context, r *sources.ImportResult) error {
		committed = r
		return nil
	})
	if err := cmd.Run(context.Background(), []string{"file", "--api", "api-2", path}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if committed == nil || committed.API.Name != "Maps" {
		t.Errorf("unexpected commit: %+v", committed)
	}

	missing := Source{}.Command(func(context.Context, *sources.ImportResult) error { return nil })
	if err := missing.Run(context.Background(), []string{"file", filepath.Join(t.TempDir(), "absent.json")}); err == nil {
		t.Error("Expected error for a missing file")
	}
}
