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
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

// Source registers example import as a CLI subcommand.
type Source struct{}

// Name returns the name of the source type
func (Source) Name() string {
	return "example"
}

// Command returns the import subcommand.
func (Source) Command(commit sources.Commit) *cli.Command {
	return &cli.Command{
		Name:  "example",
		Usage: "Create an API and one tool from JSON request and response examples.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Name of the new API."},
			&cli.StringFlag{Name: "base-url", Usage: "Base URL of the API."},
			&cli.StringFlag{Name: "method", Value: "GET", Usage: "HTTP method: GET, POST, PUT, DELETE or PATCH."},
			&cli.StringFlag{Name: "path", Usage: "Path template, for example /items/{id}."},
			&cli.StringFlag{Name: "request", Usage: "File with an example request body."},
			&cli.StringFlag{Name: "response", Usage: "File with an example response body."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			request, err := readOptional(cmd.String("request"))
			if err != nil {
				return err
			}
			response, err := readOptional(cmd.String("response"))
			if err != nil {
				return err
			}
			method, _ := core.ParseMethod(strings.ToUpper(cmd.String("method")))
			return Commit(ctx, Input{
				APIName:  cmd.String("name"),
				BaseURL:  cmd.String("base-url"),
				Method:   method,
				Path:     cmd.String("path"),
				Request:  request,
				Response: response,
			}, commit)
		},
	}
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}
