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
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
)

// GrantClientCredentials selects the client credentials flow.
const GrantClientCredentials = "client_credentials"

// OAuth2Processor authorizes requests for oauth2 schemes. A scheme with the
// client_credentials grant fetches tokens from its token URL with the secret
// as client secret. Any other scheme uses the secret as an access token that
// was obtained outside the preview.
type OAuth2Processor struct {
	client *http.Client

	mu      sync.Mutex
	sources map[string]cachedSource
}

type cachedSource struct {
	secret string
	ts     oauth2.TokenSource
}

// NewOAuth2Processor creates the processor. Token requests use client, or
// http.DefaultClient when nil.
func NewOAuth2Processor(client *http.Client) *OAuth2Processor {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuth2Processor{client: client, sources: make(map[string]cachedSource)}
}

func (p *OAuth2Processor) Name() string { return string(core.AuthTypeOAuth2) }

func (p *OAuth2Processor) Stage() processors.Stage { return processors.StagePreRequest }

func (p *OAuth2Processor) Process(_ context.Context, data *processors.Data) error {
	secret, err := resolveSecret(data.Secret)
	if err != nil {
		return errors.Wrap(err, "failed to get oauth2 credentials")
	}

	if data.Auth.Config.GrantType != GrantClientCredentials {
		(&oauth2.Token{AccessToken: secret, TokenType: "Bearer"}).SetAuthHeader(data.HTTPRequest)
		return nil
	}

	token, err := p.tokenSource(data.Auth, secret).Token()
	if err != nil {
		return errors.Wrap(err, "failed to fetch oauth2 token")
	}
	token.SetAuthHeader(data.HTTPRequest)
	return nil
}

// tokenSource returns a cached, self refreshing source for the scheme. A
// changed secret replaces the cached source.
func (p *OAuth2Processor) tokenSource(scheme *core.AuthScheme, secret string) oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.sources[scheme.ID]; ok && cached.secret == secret {
		return cached.ts
	}

	cfg := &clientcredentials.Config{
		ClientID:     scheme.Config.ClientID,
		ClientSecret: secret,
		TokenURL:     scheme.Config.TokenURL,
		Scopes:       scheme.Config.Scopes,
		AuthStyle:    authStyle(scheme.Config.TokenAuthMethod),
	}
	if len(scheme.Config.AdditionalTokenParams) > 0 {
		cfg.EndpointParams = url.Values{}
		for k, v := range scheme.Config.AdditionalTokenParams {
			cfg.EndpointParams.Set(k, v)
		}
	}
	// Refreshes outlive the call that triggered them.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, p.client)
	ts := cfg.TokenSource(ctx)
	p.sources[scheme.ID] = cachedSource{secret: secret, ts: ts}
	return ts
}

func authStyle(method string) oauth2.AuthStyle {
	switch method {
	case "header":
		return oauth2.AuthStyleInHeader
	case "body":
		return oauth2.AuthStyleInParams
	default:
		return oauth2.AuthStyleAutoDetect
	}
}
