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

// Package internal wires the mcpc command line to the project packages:
// configuration, logging, the project file, the secret store and the
// preview server.
package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/config"
	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/secrets"
	"github.com/asertorio/mcp-compiler/pkg/sources"
	"github.com/asertorio/mcp-compiler/pkg/sources/example"
	"github.com/asertorio/mcp-compiler/pkg/sources/file"
	"github.com/asertorio/mcp-compiler/pkg/sources/openapi"
	"github.com/asertorio/mcp-compiler/pkg/store"
)

// ErrNoProjectFile is returned by commands that need a project when none is
// configured.
var ErrNoProjectFile = errors.New("no project file: pass --project or set project.file")

// App is the state shared by all commands of one invocation.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	out          io.Writer
	projectFile  string
	secrets      secrets.Store
	closeSecrets func() error
}

// NewApp creates an App that prints command output to out.
func NewApp(out io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	return &App{out: out, Logger: zap.NewNop()}
}

// setup loads the configuration and builds the logger. Command line flags win
// over the config file and the environment.
func (a *App) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	v := config.New(cmd.String("config"))
	if cmd.IsSet("project") {
		v.Set("project.file", cmd.String("project"))
	}
	if cmd.IsSet("debug") {
		v.Set("log.debug", cmd.Bool("debug"))
	}
	cfg, err := config.Load(v)
	if err != nil {
		return ctx, err
	}
	logger, err := NewLogger(cfg.Log.Level, cfg.Log.Debug)
	if err != nil {
		return ctx, err
	}
	a.Config = cfg
	a.Logger = logger
	a.projectFile = cfg.Project.File
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Configuration loaded", zap.String("file", used))
	}
	return ctx, nil
}

// teardown releases what setup and the commands opened.
func (a *App) teardown(context.Context, *cli.Command) error {
	var err error
	if a.closeSecrets != nil {
		err = a.closeSecrets()
		a.closeSecrets = nil
	}
	_ = a.Logger.Sync()
	return err
}

// Secrets opens the configured secret store on first use.
func (a *App) Secrets() (secrets.Store, error) {
	if a.secrets != nil {
		return a.secrets, nil
	}
	switch a.Config.Secrets.Backend {
	case config.BackendMemory:
		a.secrets = secrets.NewMemoryStore()
	default:
		bolt, err := secrets.OpenBolt(a.Config.Secrets.Path)
		if err != nil {
			return nil, err
		}
		a.secrets = bolt
		a.closeSecrets = bolt.Close
	}
	return a.secrets, nil
}

// ProjectFile returns the project file every project command works on.
func (a *App) ProjectFile() (string, error) {
	if a.projectFile == "" {
		return "", ErrNoProjectFile
	}
	return a.projectFile, nil
}

// Project loads the current project file.
func (a *App) Project() (*core.Project, error) {
	path, err := a.ProjectFile()
	if err != nil {
		return nil, err
	}
	return LoadProject(path)
}

// Mutate loads the project file, applies one store action and saves the
// result. A failing action leaves the file untouched.
func (a *App) Mutate(ctx context.Context, action func(*core.Project) (*core.Project, error)) (*core.Project, error) {
	path, err := a.ProjectFile()
	if err != nil {
		return nil, err
	}
	p, err := LoadProject(path)
	if err != nil {
		return nil, err
	}

	c := store.NewContainer(a.Logger, store.WithAutosave(FileSaver{Path: path}, a.Config.Autosave.Debounce))
	defer c.Close()
	c.Load(p)
	next, err := c.DispatchErr(action)
	if err != nil {
		return nil, err
	}
	if err := c.Flush(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to save project")
	}
	return next, nil
}

// Commit stores an import result in the project file.
func (a *App) Commit(ctx context.Context, result *sources.ImportResult) error {
	_, err := a.Mutate(ctx, func(p *core.Project) (*core.Project, error) {
		return store.ImportAPIData(p, result.API, result.Tools, result.AuthSchemes), nil
	})
	if err != nil {
		return err
	}
	a.Logger.Info("Import committed",
		zap.String("api", result.API.Name),
		zap.Int("tools", len(result.Tools)),
		zap.Int("authSchemes", len(result.AuthSchemes)))
	a.printf("Imported %s with %d tools and %d auth schemes\n", result.API.Name, len(result.Tools), len(result.AuthSchemes))
	return nil
}

// Sources returns the import sources configured for this invocation.
func (a *App) Sources() (*sources.Registry, error) {
	return sources.NewRegistry(
		openapi.NewSource(a.importOptions),
		example.Source{},
		file.Source{},
	)
}

func (a *App) importOptions() openapi.Options {
	return openapi.Options{
		Logger:     a.Logger,
		HTTPClient: &http.Client{Timeout: a.Config.Import.Timeout},
		Strict:     a.Config.Import.Strict,
		DevMode:    a.Config.Import.DevMode,
	}
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
