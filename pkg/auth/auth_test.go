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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type keyPair struct {
	private *rsa.PrivateKey
	pem     string
}

func newKeyPair(t *testing.T) keyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return keyPair{private: key, pem: string(block)}
}

func (k keyPair) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(k.private)
	require.NoError(t, err)
	return token
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"disabled", Config{}, ""},
		{"no key", Config{Enabled: true}, "either jwks_uri or public_key"},
		{"both keys", Config{Enabled: true, JWKSURI: "https://a", PublicKey: "k"}, "cannot specify both"},
		{"plain http jwks", Config{Enabled: true, JWKSURI: "http://a"}, "must use HTTPS"},
		{"bad algorithm", Config{Enabled: true, PublicKey: "k", Algorithm: "HS256"}, "unsupported JWT algorithm"},
		{"ttl too long", Config{Enabled: true, PublicKey: "k", CacheTTL: 7200}, "cannot exceed"},
		{"bad issuer", Config{Enabled: true, PublicKey: "k", Issuer: "me"}, "issuer must be a valid URL"},
		{"ok", Config{Enabled: true, PublicKey: "k"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	c := Config{Enabled: true, PublicKey: "k"}
	require.NoError(t, c.Validate())
	assert.Equal(t, DefaultAlgorithm, c.Algorithm)
	assert.Equal(t, DefaultCacheTTL, c.CacheTTL)
	assert.Equal(t, "static public key", c.KeySource())
}

func TestScopes_Unmarshal(t *testing.T) {
	var s Scopes
	require.NoError(t, json.Unmarshal([]byte(`"tools:read  tools:call"`), &s))
	assert.Equal(t, Scopes{"tools:read", "tools:call"}, s)
	require.NoError(t, json.Unmarshal([]byte(`["a","b"]`), &s))
	assert.Equal(t, Scopes{"a", "b"}, s)
	assert.Error(t, json.Unmarshal([]byte(`42`), &s))
}

func TestTokenValidator(t *testing.T) {
	keys := newKeyPair(t)
	other := newKeyPair(t)
	v, err := NewTokenValidator(&Config{
		Enabled:        true,
		PublicKey:      keys.pem,
		Issuer:         "https://issuer.example.com",
		RequiredScopes: []string{"tools:call"},
	})
	require.NoError(t, err)
	defer v.Close()

	valid := jwt.MapClaims{
		"sub":                "user-1",
		"preferred_username": "alice",
		"iss":                "https://issuer.example.com",
		"scope":              "tools:read tools:call",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}

	caller, err := v.Validate(keys.sign(t, valid))
	require.NoError(t, err)
	assert.Equal(t, "user-1", caller.Subject)
	assert.Equal(t, "alice", caller.DisplayName())
	assert.True(t, caller.HasScope("tools:read"))

	t.Run("wrong key", func(t *testing.T) {
		_, err := v.Validate(other.sign(t, valid))
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwt.MapClaims{}
		for k, val := range valid {
			claims[k] = val
		}
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := v.Validate(keys.sign(t, claims))
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing scope", func(t *testing.T) {
		claims := jwt.MapClaims{}
		for k, val := range valid {
			claims[k] = val
		}
		claims["scope"] = []string{"tools:read"}
		_, err := v.Validate(keys.sign(t, claims))
		assert.ErrorIs(t, err, ErrInsufficientScope)
	})
}

func TestMiddleware(t *testing.T) {
	keys := newKeyPair(t)
	m, err := NewMiddleware(&Config{Enabled: true, PublicKey: keys.pem, Required: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Close()

	var seen *Caller
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	good := keys.sign(t, jwt.MapClaims{"sub": "svc", "exp": time.Now().Add(time.Hour).Unix()})
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic abc", http.StatusBadRequest},
		{"empty token", "Bearer ", http.StatusBadRequest},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, "svc", seen.DisplayName())
}

func TestMiddleware_Optional(t *testing.T) {
	keys := newKeyPair(t)
	m, err := NewMiddleware(&Config{Enabled: true, PublicKey: keys.pem}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	caller, err := m.Authenticate(req)
	assert.NoError(t, err)
	assert.Nil(t, caller)
}
