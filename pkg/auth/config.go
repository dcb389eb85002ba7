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

// Package auth guards the HTTP preview transport with JWT bearer tokens.
package auth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultAlgorithm = "RS256"
	DefaultCacheTTL  = 300
	maxCacheTTL      = 3600
)

var supportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
	"PS256", "PS384", "PS512",
}

// Config describes how incoming bearer tokens are checked. Keys are read
// from the preview section of the configuration file.
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// Exactly one key source.
	JWKSURI   string `mapstructure:"jwks_uri" json:"jwksUri,omitempty"`
	PublicKey string `mapstructure:"public_key" json:"publicKey,omitempty"`

	Algorithm      string   `mapstructure:"algorithm" json:"algorithm"`
	Issuer         string   `mapstructure:"issuer" json:"issuer,omitempty"`
	Audience       string   `mapstructure:"audience" json:"audience,omitempty"`
	RequiredScopes []string `mapstructure:"required_scopes" json:"requiredScopes,omitempty"`

	// Required rejects requests without a token. Otherwise they pass
	// through anonymously.
	Required bool `mapstructure:"required" json:"required"`
	CacheTTL int  `mapstructure:"cache_ttl" json:"cacheTtl"`
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.JWKSURI == "" && c.PublicKey == "":
		return errors.New("either jwks_uri or public_key must be provided when authentication is enabled")
	case c.JWKSURI != "" && c.PublicKey != "":
		return errors.New("cannot specify both jwks_uri and public_key, choose one")
	case c.JWKSURI != "" && !strings.HasPrefix(c.JWKSURI, "https://"):
		return errors.New("jwks_uri must use HTTPS")
	}

	if c.Algorithm == "" {
		c.Algorithm = DefaultAlgorithm
	}
	if !slices.Contains(supportedAlgorithms, c.Algorithm) {
		return errors.Errorf("unsupported JWT algorithm: %s", c.Algorithm)
	}

	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.CacheTTL > maxCacheTTL {
		return errors.Errorf("cache_ttl cannot exceed %d seconds", maxCacheTTL)
	}

	if c.Issuer != "" && !strings.HasPrefix(c.Issuer, "https://") && !strings.HasPrefix(c.Issuer, "http://") {
		return errors.New("issuer must be a valid URL")
	}
	return nil
}

// KeySource describes where verification keys come from, for logging.
func (c *Config) KeySource() string {
	switch {
	case c.JWKSURI != "":
		return fmt.Sprintf("JWKS from %s", c.JWKSURI)
	case c.PublicKey != "":
		return "static public key"
	default:
		return "none"
	}
}
