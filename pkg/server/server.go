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

// Package server runs a project as a live MCP server: enabled tools proxy to
// their APIs, resources are served as MCP resources and the prompt as an MCP
// prompt.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/auth"
	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/tool"
)

// EndpointPath is where the HTTP transport serves MCP.
const EndpointPath = "/mcp"

// Options configures a Server.
type Options struct {
	Tools tool.Options
	// Auth guards the HTTP transport when enabled.
	Auth   *auth.Config
	Logger *zap.Logger
}

// Server wraps the mcp-go server with the project it serves.
type Server struct {
	server  *server.MCPServer
	project *core.Project
	auth    *auth.Config
	logger  *zap.Logger
}

// New builds the MCP server for p. Disabled tools are skipped.
func New(p *core.Project, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Tools.Logger == nil {
		opts.Tools.Logger = logger
	}

	s := &Server{
		server: server.NewMCPServer(
			p.Name,
			p.Version,
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
			server.WithPromptCapabilities(false),
		),
		project: p,
		auth:    opts.Auth,
		logger:  logger,
	}
	if err := s.registerTools(opts.Tools); err != nil {
		return nil, err
	}
	s.registerResources()
	s.registerPrompt()
	return s, nil
}

func (s *Server) registerTools(opts tool.Options) error {
	for _, t := range s.project.Tools {
		if !t.Enabled {
			continue
		}
		h, err := tool.NewHandler(s.project, t, opts)
		if err != nil {
			return err
		}
		mcpTool, err := Definition(t)
		if err != nil {
			return err
		}
		s.server.AddTool(mcpTool, h.Func())
		s.logger.Debug("Registered tool", zap.String("tool", t.Name), zap.String("method", string(t.Method)), zap.String("path", t.Path))
	}
	return nil
}

// Definition is the MCP form of a tool. The request schema is the input
// schema; an empty one becomes an object without properties.
func Definition(t core.Tool) (mcp.Tool, error) {
	raw := json.RawMessage(`{"type":"object"}`)
	if !t.RequestSchema.IsEmpty() {
		data, err := json.Marshal(t.RequestSchema)
		if err != nil {
			return mcp.Tool{}, errors.Wrapf(err, "failed to encode input schema of %s", t.Name)
		}
		raw = data
	}
	def := mcp.NewToolWithRawSchema(t.Name, t.Description, raw)
	def.Annotations = mcp.ToolAnnotation{
		Title:           t.Name,
		ReadOnlyHint:    mcp.ToBoolPtr(t.Guardrails.ReadOnly),
		DestructiveHint: mcp.ToBoolPtr(t.Guardrails.ConfirmationRequired),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
	return def, nil
}

func (s *Server) registerResources() {
	for _, r := range s.project.Resources {
		res := r
		s.server.AddResource(
			mcp.NewResource(res.URI, res.Name,
				mcp.WithResourceDescription(res.Description),
				mcp.WithMIMEType(res.MimeType)),
			func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				return []mcp.ResourceContents{
					mcp.TextResourceContents{URI: res.URI, MIMEType: res.MimeType, Text: res.Content},
				}, nil
			},
		)
		s.logger.Debug("Registered resource", zap.String("uri", res.URI))
	}
}

func (s *Server) registerPrompt() {
	p := s.project.Prompt
	if p == nil {
		return
	}
	prompt := *p
	s.server.AddPrompt(
		mcp.NewPrompt(prompt.Name, mcp.WithPromptDescription(prompt.Description)),
		func(ctx context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return mcp.NewGetPromptResult(prompt.Description, []mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(prompt.Content)),
			}), nil
		},
	)
	s.logger.Debug("Registered prompt", zap.String("prompt", prompt.Name))
}

// Start serves until ctx is done or the transport fails.
func (s *Server) Start(ctx context.Context, transport core.TransportType, port string) error {
	switch transport {
	case core.TransportTypeHTTP:
		return s.serveHTTP(ctx, ":"+port)
	case core.TransportTypeStdio:
		s.logger.Info("Starting stdio MCP server", zap.String("project", s.project.Name))
		return server.NewStdioServer(s.server).Listen(ctx, os.Stdin, os.Stdout)
	default:
		return errors.Errorf("unsupported transport type: %s", transport)
	}
}

// Handler returns the HTTP handler of the streamable transport, guarded by
// bearer authentication when configured.
func (s *Server) Handler() (http.Handler, func() error, error) {
	var handler http.Handler = server.NewStreamableHTTPServer(s.server)
	closer := func() error { return nil }
	if s.auth != nil && s.auth.Enabled {
		mw, err := auth.NewMiddleware(s.auth, s.logger)
		if err != nil {
			return nil, nil, err
		}
		handler = mw.Wrap(handler)
		closer = mw.Close
	}
	mux := http.NewServeMux()
	mux.Handle(EndpointPath, handler)
	return mux, closer, nil
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	handler, closeAuth, err := s.Handler()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeAuth(); err != nil {
			s.logger.Warn("Failed to stop authentication", zap.Error(err))
		}
	}()

	httpServer := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP MCP server", zap.String("addr", addr), zap.String("endpoint", EndpointPath))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Stopping HTTP MCP server")
		return errors.Wrap(httpServer.Shutdown(shutdownCtx), "failed to stop HTTP server")
	}
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.server
}
