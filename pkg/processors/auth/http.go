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

package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
)

// BearerProcessor sends the secret as a bearer token.
type BearerProcessor struct{}

func (p *BearerProcessor) Name() string { return string(core.AuthTypeBearer) }

func (p *BearerProcessor) Stage() processors.Stage { return processors.StagePreRequest }

func (p *BearerProcessor) Process(_ context.Context, data *processors.Data) error {
	token, err := resolveSecret(data.Secret)
	if err != nil {
		return errors.Wrap(err, "failed to get bearer token")
	}
	data.HTTPRequest.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// BasicProcessor sends the secret, stored as user:password, as basic auth.
type BasicProcessor struct{}

func (p *BasicProcessor) Name() string { return string(core.AuthTypeBasic) }

func (p *BasicProcessor) Stage() processors.Stage { return processors.StagePreRequest }

func (p *BasicProcessor) Process(_ context.Context, data *processors.Data) error {
	secret, err := resolveSecret(data.Secret)
	if err != nil {
		return errors.Wrap(err, "failed to get basic credentials")
	}
	user, password, _ := strings.Cut(secret, ":")
	data.HTTPRequest.SetBasicAuth(user, password)
	return nil
}
