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

// Package tool proxies MCP tool calls to the HTTP endpoints they wrap.
package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
	"github.com/asertorio/mcp-compiler/pkg/schema"
	"github.com/asertorio/mcp-compiler/pkg/secrets"
)

// HandlerFunc is the type for tool handler functions
type HandlerFunc = server.ToolHandlerFunc

// maxResponseBytes caps how much of a response body is returned to the client.
const maxResponseBytes = 10 << 20

// Options are the collaborators shared by all tool handlers of a server.
type Options struct {
	Client   *http.Client
	Registry *processors.Registry
	Secrets  secrets.Store
	Logger   *zap.Logger
}

// Handler serves calls of one tool.
type Handler struct {
	tool    core.Tool
	baseURL string
	auth    *core.AuthScheme
	limiter *rate.Limiter
	post    *processors.Chain
	opts    Options

	// validate is false when the request schema cannot be compiled, for
	// example because it is recursive.
	validate bool
}

// NewHandler prepares the handler of t within p. The tool's own auth scheme
// wins over the API default.
func NewHandler(p *core.Project, t core.Tool, opts Options) (*Handler, error) {
	api, ok := p.FindAPI(t.APIID)
	if !ok {
		return nil, errors.Errorf("tool %q belongs to a missing API", t.Name)
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Registry == nil {
		opts.Registry = processors.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Secrets == nil {
		opts.Secrets = secrets.NewMemoryStore()
	}

	h := &Handler{
		tool:     t,
		baseURL:  api.BaseURL,
		opts:     opts,
		post:     processors.NewChain(opts.Registry.ByStage(processors.StagePostResponse)...),
		validate: true,
	}
	if !t.RequestSchema.IsEmpty() {
		if err := schema.Resolve(t.RequestSchema); err != nil {
			opts.Logger.Warn("Arguments will not be validated", zap.String("tool", t.Name), zap.Error(err))
			h.validate = false
		}
	}
	if h.post.Len() == 0 {
		h.post.Add(&processors.ResultProcessor{})
	}
	if authID := p.EffectiveAuthID(&t); authID != "" {
		scheme, ok := p.FindAuthScheme(authID)
		if !ok {
			return nil, errors.Errorf("tool %q references a missing auth scheme", t.Name)
		}
		h.auth = scheme
	}
	if hint := t.Guardrails.RateLimitHint; hint != nil && *hint > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(*hint/60), 1)
	}
	return h, nil
}

// Func returns the handler as an mcp-go tool handler.
func (h *Handler) Func() HandlerFunc {
	return h.Handle
}

// Handle validates the arguments, calls the endpoint and returns its
// response. Problems the caller can fix are reported as error results.
func (h *Handler) Handle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := h.opts.Logger.With(zap.String("tool", h.tool.Name))

	if h.limiter != nil && !h.limiter.Allow() {
		return mcp.NewToolResultError(fmt.Sprintf(
			"Rate limit of %g calls per minute exceeded for %s", *h.tool.Guardrails.RateLimitHint, h.tool.Name)), nil
	}

	args := request.GetArguments()
	if args == nil {
		args = map[string]any{}
	}
	if h.validate {
		if err := schema.ValidateInstance(h.tool.RequestSchema, args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
	}

	req, err := BuildRequest(ctx, h.baseURL, &h.tool, args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data := &processors.Data{Request: &request, Tool: &h.tool, HTTPRequest: req, Auth: h.auth}
	if h.auth != nil && h.auth.Config.SecretID != "" {
		secret, err := secrets.Require(ctx, h.opts.Secrets, h.auth.Config.SecretID)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load credentials for %s", h.auth.Name)
		}
		data.Secret = secret
	}
	if err := h.opts.Registry.Authenticate(ctx, data); err != nil {
		return nil, errors.Wrap(err, "pre-request processing failed")
	}

	logger.Debug("Calling endpoint", zap.String("method", req.Method), zap.String("url", req.URL.String()))
	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", req.Method, req.URL)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	data.HTTPResponse = resp
	data.Body = body
	if err := h.post.Process(ctx, data); err != nil {
		return nil, errors.Wrap(err, "post-response processing failed")
	}
	return data.Result, nil
}
