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

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file name without extension.
	FileName = "mcpc"
	// EnvPrefix prefixes environment overrides, as in MCPC_SERVER_PORT.
	EnvPrefix = "MCPC"
)

// Dir returns the per-user config directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcpc"
	}
	return filepath.Join(home, ".config", "mcpc")
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("project.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)
	v.SetDefault("secrets.backend", BackendBolt)
	v.SetDefault("secrets.path", filepath.Join(Dir(), "secrets.db"))
	v.SetDefault("import.strict", false)
	v.SetDefault("import.timeout", "0s")
	v.SetDefault("import.dev_mode", false)
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.auth.enabled", false)
	v.SetDefault("server.auth.jwks_uri", "")
	v.SetDefault("server.auth.public_key", "")
	v.SetDefault("server.auth.issuer", "")
	v.SetDefault("server.auth.audience", "")
	v.SetDefault("server.auth.required_scopes", []string{})
	v.SetDefault("server.auth.required", false)
	v.SetDefault("server.auth.algorithm", "RS256")
	v.SetDefault("server.auth.cache_ttl", 300)
	v.SetDefault("autosave.debounce", "2s")
}

// New returns a viper instance with defaults and environment overrides. When
// path is empty the config file is looked up in the working directory and in
// Dir; a missing file is not an error.
func New(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}
	return v
}

// Load reads the configuration through v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile is New followed by Load.
func LoadFile(path string) (*Config, error) {
	return Load(New(path))
}
