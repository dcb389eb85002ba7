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

// Package config holds the mcpc settings: which project file to edit, where
// secrets live, how imports run and how the preview server listens.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/auth"
	"github.com/asertorio/mcp-compiler/pkg/core"
)

// Secret store backends.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// ProjectConfig selects the project file.
type ProjectConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Debug bool   `mapstructure:"debug"`
}

// SecretsConfig selects the secret store.
type SecretsConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=bolt memory"`
	Path    string `mapstructure:"path" validate:"required_if=Backend bolt"`
}

// ImportConfig controls OpenAPI imports.
type ImportConfig struct {
	Strict bool `mapstructure:"strict"`
	// Timeout bounds fetching and parsing; zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	// DevMode suppresses URL security warnings.
	DevMode bool `mapstructure:"dev_mode"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Transport string `mapstructure:"transport" validate:"oneof=stdio http"`
	Port      string `mapstructure:"port" validate:"required,numeric"`
	// Timeout applies to outbound API calls.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Auth    auth.Config   `mapstructure:"auth"`
}

// AutosaveConfig controls the debounce of project saves.
type AutosaveConfig struct {
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// Config is the full mcpc configuration.
type Config struct {
	Project  ProjectConfig  `mapstructure:"project"`
	Log      LogConfig      `mapstructure:"log"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	Import   ImportConfig   `mapstructure:"import"`
	Server   ServerConfig   `mapstructure:"server"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
}

var validate = validator.New()

// Validate checks every section and the inbound auth settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, describe(fe))
			}
			return errors.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid configuration")
	}
	if err := c.Server.Auth.Validate(); err != nil {
		return errors.Wrap(err, "invalid server.auth configuration")
	}
	return nil
}

// Transport returns the server transport as a core value.
func (c *Config) Transport() core.TransportType {
	return core.TransportType(c.Server.Transport)
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "numeric":
		return fmt.Sprintf("%s must be numeric, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s check", field, fe.Tag())
	}
}
