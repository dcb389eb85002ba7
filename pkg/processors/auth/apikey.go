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

// Package auth attaches the credentials of a project auth scheme to outgoing
// tool calls.
package auth

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
)

// DefaultAPIKeyHeader is used when an apiKey scheme names no header.
const DefaultAPIKeyHeader = "X-API-Key"

// Register adds the credential processors for every auth type to r.
func Register(r *processors.Registry, client *http.Client) {
	r.Register(&APIKeyProcessor{})
	r.Register(&BearerProcessor{})
	r.Register(&BasicProcessor{})
	r.Register(NewOAuth2Processor(client))
}

// APIKeyProcessor adds API key authentication to requests
type APIKeyProcessor struct{}

// Name returns the processor name
func (p *APIKeyProcessor) Name() string {
	return string(core.AuthTypeAPIKey)
}

// Stage returns the processing stage
func (p *APIKeyProcessor) Stage() processors.Stage {
	return processors.StagePreRequest
}

// Process sets the configured header to the secret value.
func (p *APIKeyProcessor) Process(_ context.Context, data *processors.Data) error {
	key, err := resolveSecret(data.Secret)
	if err != nil {
		return errors.Wrap(err, "failed to get API key")
	}
	header := data.Auth.Config.HeaderName
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	data.HTTPRequest.Header.Set(header, key)
	return nil
}

// resolveSecret returns the secret, reading it from the environment when it
// has the form ${NAME}.
func resolveSecret(value string) (string, error) {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := strings.TrimSuffix(strings.TrimPrefix(value, "${"), "}")
		envValue := os.Getenv(envVar)
		if envValue == "" {
			return "", errors.Errorf("environment variable %s is not set", envVar)
		}
		return envValue, nil
	}
	if value == "" {
		return "", errors.New("no secret stored for this scheme")
	}
	return value, nil
}
