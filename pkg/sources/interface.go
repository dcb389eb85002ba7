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

// Package sources defines how external API descriptions are turned into
// project entities.
package sources

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/asertorio/mcp-compiler/pkg/core"
)

// ImportResult is the output of one import: an API, its tools and the auth
// schemes found in the description. It is committed as a whole or not at all.
type ImportResult struct {
	API         core.API
	Tools       []core.Tool
	AuthSchemes []core.AuthScheme
}

// Commit stores a finished import.
type Commit func(ctx context.Context, result *ImportResult) error

// Source is one kind of import input.
type Source interface {
	// Name returns the name of the source type
	Name() string

	// Command returns the CLI subcommand that runs this source and hands the
	// result to commit
	Command(commit Commit) *cli.Command
}
