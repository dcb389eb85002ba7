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

package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/store"
)

func TestSaveAndLoadProject(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{name: "flat file", filename: "weather.json"},
		{name: "nested directory", filename: filepath.Join("projects", "2025", "weather.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			original := store.CreateProject("Weather")

			if err := SaveProject(path, original); err != nil {
				t.Fatalf("SaveProject() error = %v", err)
			}
			loaded, err := LoadProject(path)
			if err != nil {
				t.Fatalf("LoadProject() error = %v", err)
			}
			if loaded.ID != original.ID || loaded.Name != "Weather" || loaded.Version != store.DefaultVersion {
				t.Errorf("round trip mismatch: got %+v", loaded)
			}

			matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
			if len(matches) != 0 {
				t.Errorf("temporary files left behind: %v", matches)
			}
		})
	}
}

func TestLoadProject_LegacyPrompts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{
  "id": "p-1",
  "name": "Legacy",
  "version": "0.9.0",
  "apis": [],
  "tools": [],
  "authSchemes": [],
  "prompts": [
    {"name": "first", "content": "Use me."},
    {"name": "second", "content": "Ignored."}
  ],
  "createdAt": "2024-01-01T00:00:00.000Z",
  "updatedAt": "2024-01-01T00:00:00.000Z"
}`
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if p.Prompt == nil || p.Prompt.Name != "first" {
		t.Errorf("Expected first legacy prompt, got %+v", p.Prompt)
	}
	if p.Resources == nil {
		t.Error("Expected resources to default to an empty list")
	}

	if err := SaveProject(path, p); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"prompts"`) {
		t.Error("Expected legacy prompts key to be dropped on save")
	}
}

func TestLoadProject_Errors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.json"), want: "failed to open file"},
		{name: "invalid json", path: broken, want: "failed to parse project"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProject(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFileSaver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	saver := FileSaver{Path: path}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := saver.Save(ctx, store.CreateProject("Canceled")); err == nil {
		t.Error("Expected error for a canceled context")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file after a canceled save")
	}

	c := store.NewContainer(nil, store.WithAutosave(saver, 0))
	c.Load(store.CreateProject("Saved"))
	c.Dispatch(func(p *core.Project) *core.Project {
		return store.UpdateProjectMetadata(p, store.MetadataUpdate{Version: "2.0.0"})
	})
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	p, err := LoadProject(path)
	if err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	if p.Version != "2.0.0" {
		t.Errorf("Expected version 2.0.0, got %q", p.Version)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger("verbose", false); err == nil {
		t.Error("Expected error for an unknown level")
	}
	logger, err := NewLogger("warn", false)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Error("Expected debug to be disabled at warn level")
	}
}
