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
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/export"
	"github.com/asertorio/mcp-compiler/pkg/sources/openapi"
	"github.com/asertorio/mcp-compiler/pkg/store"
	"github.com/asertorio/mcp-compiler/pkg/validation"
)

// Command returns the root mcpc command.
func (a *App) Command(version string) (*cli.Command, error) {
	importCmd, err := a.importCommand()
	if err != nil {
		return nil, err
	}
	return &cli.Command{
		Name:    "mcpc",
		Usage:   "Assemble MCP server definitions from OpenAPI documents and JSON examples.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to the mcpc config file."},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project file to work on."},
			&cli.BoolFlag{Name: "debug", Usage: "Enable development logging."},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			a.newCommand(),
			a.infoCommand(),
			importCmd,
			a.lintCommand(),
			a.validateCommand(),
			a.toolsCommand(),
			a.authCommand(),
			a.deleteCommand(),
			a.resourcesCommand(),
			a.promptCommand(),
			a.secretCommand(),
			a.exportCommand(),
			a.schemaCommand(),
			a.serveCommand(),
		},
	}, nil
}

func (a *App) newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create an empty project file.",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing project file."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := strings.TrimSpace(cmd.Args().First())
			if name == "" {
				return errors.New("a project name is required")
			}
			path := a.projectFile
			if path == "" {
				path = core.DefaultFilename(name)
			}
			if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
				return errors.Errorf("%s already exists, use --force to overwrite it", path)
			}
			if err := SaveProject(path, store.CreateProject(name)); err != nil {
				return err
			}
			a.printf("Created project %s in %s\n", name, path)
			return nil
		},
	}
}

func (a *App) infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show a summary of the project.",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := a.Project()
			if err != nil {
				return err
			}
			a.printf("Name:      %s\nVersion:   %s\nUpdated:   %s\n", p.Name, p.Version, p.UpdatedAt)
			a.printf("APIs:      %d\nTools:     %d\nAuth:      %d\nResources: %d\n",
				len(p.APIs), len(p.Tools), len(p.AuthSchemes), len(p.Resources))
			if p.Prompt != nil {
				a.printf("Prompt:    %s\n", p.Prompt.Name)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, api := range p.APIs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d tools\n", api.ID, api.Name, api.BaseURL, len(p.ToolsForAPI(api.ID)))
			}
			return w.Flush()
		},
	}
}

func (a *App) importCommand() (*cli.Command, error) {
	registry, err := a.Sources()
	if err != nil {
		return nil, err
	}
	var cancel context.CancelFunc
	return &cli.Command{
		Name:     "import",
		Usage:    "Add an API and its tools to the project.",
		Commands: registry.Commands(a.Commit),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if timeout := a.Config.Import.Timeout; timeout > 0 {
				ctx, cancel = context.WithTimeout(ctx, timeout)
			}
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	}, nil
}

func (a *App) lintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Check an OpenAPI document without importing it.",
		ArgsUsage: "<url | file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			source := cmd.Args().First()
			if source == "" {
				return errors.New("an OpenAPI URL or file is required")
			}
			issues, err := openapi.NewImporter(a.importOptions()).Lint(ctx, openapi.Request{Source: source})
			if err != nil {
				return err
			}
			return a.report(issues, "document")
		},
	}
}

func (a *App) validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the project for problems that block export.",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := a.Project()
			if err != nil {
				return err
			}
			return a.report(validation.ValidateProject(p), "project")
		},
	}
}

// report prints issues and fails when any of them is an error.
func (a *App) report(issues []validation.Issue, what string) error {
	for _, issue := range issues {
		a.printf("%s\n", issue)
	}
	if n := len(validation.Errors(issues)); n > 0 {
		return errors.Errorf("%s has %d errors", what, n)
	}
	a.printf("No errors found (%d warnings)\n", len(validation.Warnings(issues)))
	return nil
}

func (a *App) toolsCommand() *cli.Command {
	setEnabled := func(enabled bool) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
				t, ok := p.FindToolByName(name)
				if !ok {
					return nil, errors.Wrapf(store.ErrNotFound, "tool %s", name)
				}
				return store.UpdateTool(p, t.ID, func(t *core.Tool) { t.Enabled = enabled })
			})
			return err
		}
	}
	return &cli.Command{
		Name:  "tools",
		Usage: "List and change tools.",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all tools.",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					p, err := a.Project()
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
					_, _ = fmt.Fprintln(w, "NAME\tMETHOD\tPATH\tENABLED\tREAD-ONLY")
					for _, t := range p.Tools {
						_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", t.Name, t.Method, t.Path, t.Enabled, t.Guardrails.ReadOnly)
					}
					return w.Flush()
				},
			},
			{Name: "enable", Usage: "Enable a tool.", ArgsUsage: "<name>", Action: setEnabled(true)},
			{Name: "disable", Usage: "Disable a tool.", ArgsUsage: "<name>", Action: setEnabled(false)},
			{
				Name:      "set-path",
				Usage:     "Change a tool's path template; new path parameters become required properties.",
				ArgsUsage: "<name> <path>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name, path := cmd.Args().Get(0), cmd.Args().Get(1)
					if path == "" {
						return errors.New("a tool name and a path are required")
					}
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						t, ok := p.FindToolByName(name)
						if !ok {
							return nil, errors.Wrapf(store.ErrNotFound, "tool %s", name)
						}
						return store.SetToolPath(p, t.ID, path)
					})
					return err
				},
			},
		},
	}
}

func (a *App) authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage auth schemes.",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add an auth scheme.",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Value: string(core.AuthTypeBearer), Usage: "apiKey, bearer, basic, oauth2 or none."},
					&cli.StringFlag{Name: "header", Usage: "Header of an apiKey scheme."},
					&cli.StringFlag{Name: "secret-id", Usage: "Id of the secret holding the credential."},
					&cli.StringFlag{Name: "client-id", Usage: "OAuth2 client id."},
					&cli.StringFlag{Name: "auth-url", Usage: "OAuth2 authorization endpoint."},
					&cli.StringFlag{Name: "token-url", Usage: "OAuth2 token endpoint."},
					&cli.StringFlag{Name: "grant-type", Usage: "OAuth2 grant type, for example client_credentials."},
					&cli.StringSliceFlag{Name: "scope", Usage: "OAuth2 scope, repeatable."},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					name := cmd.Args().First()
					if name == "" {
						return errors.New("an auth scheme name is required")
					}
					authType := core.AuthType(cmd.String("type"))
					if !authType.IsValid() {
						return errors.Errorf("unsupported auth type: %s", authType)
					}
					in := store.AuthSchemeInput{
						Name: name,
						Type: authType,
						Config: core.AuthConfig{
							HeaderName: cmd.String("header"),
							SecretID:   cmd.String("secret-id"),
							ClientID:   cmd.String("client-id"),
							AuthURL:    cmd.String("auth-url"),
							TokenURL:   cmd.String("token-url"),
							GrantType:  cmd.String("grant-type"),
							Scopes:     cmd.StringSlice("scope"),
						},
					}
					var added core.AuthScheme
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						next, scheme := store.AddAuthScheme(p, in)
						added = scheme
						return next, nil
					})
					if err != nil {
						return err
					}
					a.printf("Added auth scheme %s (%s)\n", added.Name, added.ID)
					return nil
				},
			},
			{
				Name:      "assign",
				Usage:     "Make an auth scheme the default of an API.",
				ArgsUsage: "<api-id> <auth-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					apiID, authID := cmd.Args().Get(0), cmd.Args().Get(1)
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						if _, ok := p.FindAuthScheme(authID); !ok {
							return nil, errors.Wrapf(store.ErrNotFound, "auth scheme %s", authID)
						}
						return store.UpdateAPI(p, apiID, func(api *core.API) { api.DefaultAuthID = authID })
					})
					return err
				},
			},
		},
	}
}

func (a *App) deleteCommand() *cli.Command {
	remove := func(action func(*core.Project, string) (*core.Project, error)) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("an id is required")
			}
			_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
				return action(p, id)
			})
			return err
		}
	}
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a project entity by id.",
		Commands: []*cli.Command{
			{Name: "api", Usage: "Delete an API and its tools.", ArgsUsage: "<id>", Action: remove(store.DeleteAPI)},
			{Name: "tool", Usage: "Delete a tool.", ArgsUsage: "<id>", Action: remove(store.DeleteTool)},
			{Name: "auth", Usage: "Delete an auth scheme.", ArgsUsage: "<id>", Action: remove(store.DeleteAuthScheme)},
			{Name: "resource", Usage: "Delete a resource.", ArgsUsage: "<id>", Action: remove(store.DeleteResource)},
		},
	}
}

func (a *App) resourcesCommand() *cli.Command {
	return &cli.Command{
		Name:  "resources",
		Usage: "Manage static resources.",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a resource.",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "File with the resource content."},
					&cli.StringFlag{Name: "uri", Usage: "Resource URI; derived from the name when empty."},
					&cli.StringFlag{Name: "mime-type", Usage: "MIME type of the content."},
					&cli.StringFlag{Name: "description", Usage: "Description of the resource."},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					in := store.ResourceInput{
						Name:        cmd.Args().First(),
						URI:         cmd.String("uri"),
						MimeType:    cmd.String("mime-type"),
						Description: cmd.String("description"),
					}
					if file := cmd.String("file"); file != "" {
						data, err := os.ReadFile(file)
						if err != nil {
							return errors.Wrapf(err, "failed to read %s", file)
						}
						in.Content = string(data)
					}
					var added core.Resource
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						next, r := store.AddResource(p, in)
						added = r
						return next, nil
					})
					if err != nil {
						return err
					}
					a.printf("Added resource %s at %s\n", added.Name, added.URI)
					return nil
				},
			},
		},
	}
}

func (a *App) promptCommand() *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Manage the project prompt.",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Set the prompt. Missing fields keep their current or default value.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Prompt name."},
					&cli.StringFlag{Name: "description", Usage: "Prompt description."},
					&cli.StringFlag{Name: "content", Usage: "Prompt text."},
					&cli.StringFlag{Name: "file", Usage: "File with the prompt text."},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					content := cmd.String("content")
					if file := cmd.String("file"); file != "" {
						data, err := os.ReadFile(file)
						if err != nil {
							return errors.Wrapf(err, "failed to read %s", file)
						}
						content = string(data)
					}
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						prompt := store.DefaultPrompt()
						if p.Prompt != nil {
							prompt = *p.Prompt
						}
						if cmd.IsSet("name") {
							prompt.Name = cmd.String("name")
						}
						if cmd.IsSet("description") {
							prompt.Description = cmd.String("description")
						}
						if content != "" {
							prompt.Content = content
						}
						return store.UpdatePrompt(p, &prompt), nil
					})
					return err
				},
			},
			{
				Name:  "clear",
				Usage: "Remove the prompt.",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
						return store.UpdatePrompt(p, nil), nil
					})
					return err
				},
			},
		},
	}
}

func (a *App) secretCommand() *cli.Command {
	withID := func(fn func(ctx context.Context, cmd *cli.Command, id string) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("a secret id is required")
			}
			return fn(ctx, cmd, id)
		}
	}
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage credentials referenced by auth schemes.",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a secret.",
				ArgsUsage: "<id> <value>",
				Action: withID(func(ctx context.Context, cmd *cli.Command, id string) error {
					value := cmd.Args().Get(1)
					if value == "" {
						return errors.New("a secret value is required")
					}
					s, err := a.Secrets()
					if err != nil {
						return err
					}
					if err := s.Save(ctx, id, value); err != nil {
						return err
					}
					a.Logger.Info("Secret stored", zap.String("id", id))
					return nil
				}),
			},
			{
				Name:      "get",
				Usage:     "Print a secret.",
				ArgsUsage: "<id>",
				Action: withID(func(ctx context.Context, cmd *cli.Command, id string) error {
					s, err := a.Secrets()
					if err != nil {
						return err
					}
					value, ok, err := s.Load(ctx, id)
					if err != nil {
						return err
					}
					if !ok {
						return errors.Errorf("secret %s is not set", id)
					}
					a.printf("%s\n", value)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Remove a secret.",
				ArgsUsage: "<id>",
				Action: withID(func(ctx context.Context, cmd *cli.Command, id string) error {
					s, err := a.Secrets()
					if err != nil {
						return err
					}
					if err := s.Delete(ctx, id); err != nil {
						return err
					}
					a.Logger.Info("Secret deleted", zap.String("id", id))
					return nil
				}),
			},
		},
	}
}

func (a *App) exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Validate the project and write the export directory.",
		ArgsUsage: "<dir>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return errors.New("an export directory is required")
			}
			p, err := a.Project()
			if err != nil {
				return err
			}
			result, err := export.Write(p, dir, a.Logger)
			if err != nil {
				return err
			}
			for _, w := range result.Warnings {
				a.printf("%s\n", w)
			}
			for _, f := range result.Files {
				a.printf("Wrote %s\n", f)
			}
			return nil
		},
	}
}

func (a *App) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON Schema of the project file.",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := core.ProjectFileSchema()
			if err != nil {
				return err
			}
			a.printf("%s\n", data)
			return nil
		},
	}
}

func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the project as a live MCP server that calls the real APIs.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Aliases: []string{"t"}, Usage: "stdio or http; defaults to server.transport."},
			&cli.StringFlag{Name: "port", Usage: "HTTP port; defaults to server.port."},
			&cli.DurationFlag{Name: "timeout", Value: 0, Usage: "Outbound request timeout; defaults to server.timeout."},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			transport := a.Config.Transport()
			if cmd.IsSet("transport") {
				transport = core.TransportType(cmd.String("transport"))
			}
			if !transport.IsValid() {
				return errors.Errorf("unsupported transport type: %s", transport)
			}
			port := a.Config.Server.Port
			if cmd.IsSet("port") {
				port = cmd.String("port")
			}
			timeout := a.Config.Server.Timeout
			if cmd.IsSet("timeout") {
				timeout = cmd.Duration("timeout")
			}
			return a.Serve(ctx, transport, port, timeout)
		},
	}
}
