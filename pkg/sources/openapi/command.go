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

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/sources"
)

// Source registers OpenAPI import as a CLI subcommand.
type Source struct {
	options func() Options
}

// NewSource creates the OpenAPI source. options is called when the command
// runs, once configuration is loaded; the --strict and --dev-mode flags
// override what it returns.
func NewSource(options func() Options) *Source {
	if options == nil {
		options = func() Options { return Options{} }
	}
	return &Source{options: options}
}

// Name returns the name of the source type
func (s *Source) Name() string {
	return "openapi"
}

// Command returns the import subcommand.
func (s *Source) Command(commit sources.Commit) *cli.Command {
	return &cli.Command{
		Name:      "openapi",
		Usage:     "Import an OpenAPI 3 document as an API with one tool per operation.",
		ArgsUsage: "<url | file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "strict",
				Value: false,
				Usage: "Validate the document and fail on any error instead of importing what resolves.",
			},
			&cli.BoolFlag{
				Name:  "dev-mode",
				Value: false,
				Usage: "Enable development mode - suppresses security warnings for local/private URLs. Use only for local development.",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			location := cmd.Args().First()
			if location == "" {
				return errors.New("an OpenAPI URL or file is required")
			}
			opts := s.options()
			if opts.Logger == nil {
				opts.Logger = zap.NewNop()
			}
			if cmd.IsSet("strict") {
				opts.Strict = cmd.Bool("strict")
			}
			if cmd.IsSet("dev-mode") {
				opts.DevMode = cmd.Bool("dev-mode")
			}
			result, err := NewImporter(opts).Import(ctx, Request{Source: location})
			if err != nil {
				return err
			}
			return commit(ctx, result)
		},
	}
}
