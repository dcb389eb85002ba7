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

// Package file imports an API from another project file, so an API set up
// once can be reused across server definitions.
package file

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

var newID = uuid.NewString

// Source implements sources.Source for project files.
type Source struct{}

// Name returns the name of this source type
func (Source) Name() string {
	return "file"
}

// Import copies one API of the project document in data, with its tools and
// the auth schemes they use. Every copied entity gets a fresh id. api selects
// the API by id or name; it may be empty when the project has exactly one.
func Import(data []byte, api string) (*sources.ImportResult, error) {
	p, err := core.UnmarshalProject(data)
	if err != nil {
		return nil, err
	}
	src, err := pick(p, api)
	if err != nil {
		return nil, err
	}

	authIDs := map[string]string{}
	var schemes []core.AuthScheme
	remap := func(id string) string {
		if id == "" {
			return ""
		}
		if mapped, ok := authIDs[id]; ok {
			return mapped
		}
		scheme, ok := p.FindAuthScheme(id)
		if !ok {
			return ""
		}
		copied := *scheme
		copied.ID = newID()
		authIDs[id] = copied.ID
		schemes = append(schemes, copied)
		return copied.ID
	}

	result := &sources.ImportResult{API: *src}
	result.API.ID = newID()
	result.API.DefaultAuthID = remap(src.DefaultAuthID)
	for _, t := range p.ToolsForAPI(src.ID) {
		t.ID = newID()
		t.APIID = result.API.ID
		t.AuthID = remap(t.AuthID)
		t.RequestSchema = t.RequestSchema.Clone()
		t.ResponseSchema = t.ResponseSchema.Clone()
		result.Tools = append(result.Tools, t)
	}
	result.AuthSchemes = schemes
	return result, nil
}

func pick(p *core.Project, api string) (*core.API, error) {
	if api == "" {
		if len(p.APIs) != 1 {
			return nil, errors.Errorf("project %q has %d APIs, choose one with --api", p.Name, len(p.APIs))
		}
		return &p.APIs[0], nil
	}
	if found, ok := p.FindAPI(api); ok {
		return found, nil
	}
	for i := range p.APIs {
		if p.APIs[i].Name == api {
			return &p.APIs[i], nil
		}
	}
	return nil, errors.Errorf("project %q has no API %q", p.Name, api)
}

// Command returns the CLI command for this source
func (s Source) Command(commit sources.Commit) *cli.Command {
	return &cli.Command{
		Name:      "file",
		Usage:     "Copy an API with its tools and auth schemes from another project file.",
		ArgsUsage: "<project-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api",
				Usage: "Id or name of the API to copy. Required when the project has more than one.",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return errors.New("project file path is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", path)
			}
			result, err := Import(data, cmd.String("api"))
			if err != nil {
				return err
			}
			return commit(ctx, result)
		},
	}
}
