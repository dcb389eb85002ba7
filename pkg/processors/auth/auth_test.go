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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/processors"
)

func newData(scheme core.AuthScheme, secret string) *processors.Data {
	return &processors.Data{
		Auth:        &scheme,
		Secret:      secret,
		HTTPRequest: httptest.NewRequest(http.MethodGet, "https://api.example.com/items", nil),
	}
}

func authenticate(t *testing.T, r *processors.Registry, data *processors.Data) error {
	t.Helper()
	return r.Authenticate(context.Background(), data)
}

func TestCredentialProcessors(t *testing.T) {
	r := processors.NewRegistry()
	Register(r, nil)
	assert.Equal(t, []string{"apiKey", "basic", "bearer", "oauth2"}, r.List())

	t.Run("api key default header", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeAPIKey}, "k-1")
		require.NoError(t, authenticate(t, r, data))
		assert.Equal(t, "k-1", data.HTTPRequest.Header.Get(DefaultAPIKeyHeader))
	})

	t.Run("api key configured header", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeAPIKey, Config: core.AuthConfig{HeaderName: "X-Token"}}, "k-2")
		require.NoError(t, authenticate(t, r, data))
		assert.Equal(t, "k-2", data.HTTPRequest.Header.Get("X-Token"))
	})

	t.Run("api key from environment", func(t *testing.T) {
		t.Setenv("MCPC_TEST_KEY", "from-env")
		data := newData(core.AuthScheme{Type: core.AuthTypeAPIKey}, "${MCPC_TEST_KEY}")
		require.NoError(t, authenticate(t, r, data))
		assert.Equal(t, "from-env", data.HTTPRequest.Header.Get(DefaultAPIKeyHeader))
	})

	t.Run("unset environment variable", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeAPIKey}, "${MCPC_TEST_UNSET}")
		err := authenticate(t, r, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MCPC_TEST_UNSET is not set")
	})

	t.Run("missing secret", func(t *testing.T) {
		data := newData(core.AuthScheme{Name: "gh", Type: core.AuthTypeBearer}, "")
		err := authenticate(t, r, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `auth scheme "gh"`)
	})

	t.Run("bearer", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeBearer}, "tok")
		require.NoError(t, authenticate(t, r, data))
		assert.Equal(t, "Bearer tok", data.HTTPRequest.Header.Get("Authorization"))
	})

	t.Run("basic", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeBasic}, "alice:s3cret:x")
		require.NoError(t, authenticate(t, r, data))
		user, pass, ok := data.HTTPRequest.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "s3cret:x", pass)
	})

	t.Run("oauth2 access token", func(t *testing.T) {
		data := newData(core.AuthScheme{Type: core.AuthTypeOAuth2}, "access-1")
		require.NoError(t, authenticate(t, r, data))
		assert.Equal(t, "Bearer access-1", data.HTTPRequest.Header.Get("Authorization"))
	})
}

func TestOAuth2Processor_ClientCredentials(t *testing.T) {
	var requests atomic.Int32
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "eu", r.Form.Get("region"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "minted",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	p := NewOAuth2Processor(tokenServer.Client())
	scheme := core.AuthScheme{
		ID:   "auth-1",
		Type: core.AuthTypeOAuth2,
		Config: core.AuthConfig{
			ClientID:              "client-1",
			TokenURL:              tokenServer.URL,
			GrantType:             GrantClientCredentials,
			TokenAuthMethod:       "header",
			AdditionalTokenParams: map[string]string{"region": "eu"},
		},
	}

	for i := 0; i < 2; i++ {
		data := newData(scheme, "secret-1")
		require.NoError(t, p.Process(context.Background(), data))
		assert.Equal(t, "Bearer minted", data.HTTPRequest.Header.Get("Authorization"))
	}
	assert.Equal(t, int32(1), requests.Load(), "token is cached until it expires")
}
