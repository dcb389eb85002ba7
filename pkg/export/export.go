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

// Package export prepares a project for packaging: a pre-flight validation
// pass, the project snapshot and the Claude Desktop configuration snippet.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/validation"
)

const (
	// SnapshotFile holds the resolved project inside the export directory.
	SnapshotFile = "project.json"
	// ClaudeConfigFile holds the Claude Desktop snippet.
	ClaudeConfigFile = "claude_desktop_config.json"
	// Entrypoint is the built server script relative to the export directory.
	Entrypoint = "dist/index.js"
)

// ErrBlocked is returned when validation finds errors.
var ErrBlocked = errors.New("Please fix validation errors before exporting.")

// BlockedError carries the issues that stopped an export.
type BlockedError struct {
	Issues []validation.Issue
}

func (e *BlockedError) Error() string {
	lines := make([]string, 0, len(e.Issues)+1)
	lines = append(lines, ErrBlocked.Error())
	for _, issue := range e.Issues {
		lines = append(lines, "  "+issue.String())
	}
	return strings.Join(lines, "\n")
}

// Is makes errors.Is(err, ErrBlocked) hold.
func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// Preflight validates p. It returns a *BlockedError when any issue has error
// severity; warnings are returned for display and never block.
func Preflight(p *core.Project) ([]validation.Issue, error) {
	issues := validation.ValidateProject(p)
	if validation.HasErrors(issues) {
		return issues, &BlockedError{Issues: validation.Errors(issues)}
	}
	return issues, nil
}

type claudeServer struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type claudeConfig struct {
	MCPServers map[string]claudeServer `json:"mcpServers"`
}

// ClaudeDesktopConfig renders the mcpServers entry that starts the exported
// server found in dir.
func ClaudeDesktopConfig(p *core.Project, dir string) ([]byte, error) {
	config := claudeConfig{MCPServers: map[string]claudeServer{
		core.Slug(p.Name): {
			Command: "node",
			Args:    []string{filepath.ToSlash(filepath.Join(dir, Entrypoint))},
		},
	}}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode Claude Desktop config")
	}
	return data, nil
}

// Result lists what Write produced.
type Result struct {
	Dir      string
	Files    []string
	Warnings []validation.Issue
}

// Write runs the pre-flight check and writes the project snapshot and the
// Claude Desktop config into dir. Nothing is written when the check fails.
func Write(p *core.Project, dir string, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	issues, err := Preflight(p)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve export directory %s", dir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create export directory %s", abs)
	}

	snapshot, err := core.MarshalProject(p)
	if err != nil {
		return nil, err
	}
	claude, err := ClaudeDesktopConfig(p, abs)
	if err != nil {
		return nil, err
	}

	result := &Result{Dir: abs, Warnings: validation.Warnings(issues)}
	files := []struct {
		name string
		data []byte
	}{{SnapshotFile, snapshot}, {ClaudeConfigFile, claude}}
	for _, f := range files {
		path := filepath.Join(abs, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", path)
		}
		result.Files = append(result.Files, path)
	}

	logger.Info("Exported project",
		zap.String("project", p.Name),
		zap.String("dir", abs),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// ArchiveName is the suggested name of a packaged export.
func ArchiveName(p *core.Project) string {
	return fmt.Sprintf("%s-mcp-server.zip", core.Slug(p.Name))
}
