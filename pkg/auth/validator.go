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
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrInsufficientScope is returned when a valid token lacks a required scope.
var ErrInsufficientScope = errors.New("insufficient scopes")

// Scopes accepts the OAuth space separated scope string as well as a list.
type Scopes []string

func (s *Scopes) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return errors.Wrap(err, "scope must be a string or a list of strings")
	}
	*s = strings.Fields(joined)
	return nil
}

// Claims are the token claims the preview reads.
type Claims struct {
	jwt.RegisteredClaims
	Scope    Scopes `json:"scope,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// TokenValidator verifies signatures and standard claims with golang-jwt and
// adds the required scope check.
type TokenValidator struct {
	config  *Config
	keyFunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
	parser  *jwt.Parser
}

// NewTokenValidator creates a validator for an enabled configuration.
func NewTokenValidator(config *Config) (*TokenValidator, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid bearer auth configuration")
	}
	v := &TokenValidator{config: config}

	if config.JWKSURI != "" {
		jwks, err := keyfunc.Get(config.JWKSURI, keyfunc.Options{
			RefreshInterval: time.Duration(config.CacheTTL) * time.Second,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get JWKS from %s", config.JWKSURI)
		}
		v.jwks = jwks
		v.keyFunc = jwks.Keyfunc
	} else {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKey))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse RSA public key")
		}
		v.keyFunc = func(*jwt.Token) (any, error) { return key, nil }
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{config.Algorithm})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Validate parses a token and returns its caller.
func (v *TokenValidator) Validate(raw string) (*Caller, error) {
	token, err := v.parser.ParseWithClaims(raw, &Claims{}, v.keyFunc)
	if err != nil {
		return nil, errors.Wrap(err, "token validation failed")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	for _, required := range v.config.RequiredScopes {
		if !slices.Contains(claims.Scope, required) {
			return nil, errors.Wrapf(ErrInsufficientScope, "requires %s, has %s",
				strings.Join(v.config.RequiredScopes, ", "), strings.Join(claims.Scope, ", "))
		}
	}
	return &Caller{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Scopes:   claims.Scope,
	}, nil
}

// Close stops the JWKS refresh.
func (v *TokenValidator) Close() error {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
	return nil
}
