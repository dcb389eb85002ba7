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
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
	authproc "github.com/asertorio/mcp-compiler/pkg/processors/auth"
	"github.com/asertorio/mcp-compiler/pkg/server"
	"github.com/asertorio/mcp-compiler/pkg/tool"
)

// NewServer builds the preview server of p with the configured outbound
// client, auth processors and secret store.
func (a *App) NewServer(p *core.Project, timeout time.Duration) (*server.Server, error) {
	secretStore, err := a.Secrets()
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: timeout}
	registry := processors.NewRegistry()
	authproc.Register(registry, client)
	registry.Register(&processors.ResultProcessor{})

	return server.New(p, server.Options{
		Tools: tool.Options{
			Client:   client,
			Registry: registry,
			Secrets:  secretStore,
			Logger:   a.Logger,
		},
		Auth:   &a.Config.Server.Auth,
		Logger: a.Logger,
	})
}

// Serve runs the project until interrupted.
func (a *App) Serve(ctx context.Context, transport core.TransportType, port string, timeout time.Duration) error {
	p, err := a.Project()
	if err != nil {
		return err
	}
	srv, err := a.NewServer(p, timeout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Info("Serving project",
		zap.String("project", p.Name),
		zap.String("transport", string(transport)),
		zap.Int("tools", len(p.Tools)))
	return srv.Start(ctx, transport, port)
}
