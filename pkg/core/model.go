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

// Package core holds the project model: the APIs, tools, auth schemes,
// resources and prompt that make up one MCP server definition.
package core

import (
	"strings"
	"time"

	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// TimestampFormat is the layout of CreatedAt and UpdatedAt.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t in UTC for a project document.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Method is an HTTP method a tool can call.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
	MethodPatch  Method = "PATCH"
)

// Methods lists the supported methods in import order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch}

// ParseMethod upper-cases m and checks it is supported.
func ParseMethod(m string) (Method, bool) {
	method := Method(strings.ToUpper(strings.TrimSpace(m)))
	return method, method.IsValid()
}

// IsValid returns true for the five supported methods.
func (m Method) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// AuthType is the kind of an auth scheme.
type AuthType string

const (
	AuthTypeAPIKey AuthType = "apiKey"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeOAuth2 AuthType = "oauth2"
	AuthTypeNone   AuthType = "none"
)

// IsValid returns true for a known auth type.
func (a AuthType) IsValid() bool {
	switch a {
	case AuthTypeAPIKey, AuthTypeBearer, AuthTypeBasic, AuthTypeOAuth2, AuthTypeNone:
		return true
	default:
		return false
	}
}

// AuthConfig is the settings bag of an auth scheme. Which keys matter depends
// on the scheme type. Secret values live in the secret store under SecretID.
type AuthConfig struct {
	// apiKey
	HeaderName string `json:"headerName,omitempty"`

	// oauth2
	ClientID     string   `json:"clientId,omitempty"`
	AuthURL      string   `json:"authUrl,omitempty"`
	TokenURL     string   `json:"tokenUrl,omitempty"`
	Scopes       []string `json:"scopes,omitzero"`
	OAuthFlow    string   `json:"oauthFlow,omitempty" jsonschema:"enum=manual,enum=interactive"`
	CallbackPort *int     `json:"callbackPort,omitempty"`

	ResponseType          string            `json:"responseType,omitempty"`
	GrantType             string            `json:"grantType,omitempty"`
	TokenRequestFormat    string            `json:"tokenRequestFormat,omitempty" jsonschema:"enum=json,enum=form"`
	TokenAuthMethod       string            `json:"tokenAuthMethod,omitempty" jsonschema:"enum=body,enum=header"`
	AdditionalAuthParams  map[string]string `json:"additionalAuthParams,omitempty"`
	AdditionalTokenParams map[string]string `json:"additionalTokenParams,omitempty"`
	UsePKCE               *bool             `json:"usePkce,omitempty"`

	SecretID string `json:"secretId,omitempty"`
}

// AuthScheme is a reusable authentication setup referenced by id.
type AuthScheme struct {
	ID     string     `json:"id" jsonschema:"required"`
	Name   string     `json:"name" jsonschema:"required"`
	Type   AuthType   `json:"type" jsonschema:"required,enum=apiKey,enum=bearer,enum=basic,enum=oauth2,enum=none"`
	Config AuthConfig `json:"config" jsonschema:"required"`
}

// Guardrails are hints about how safe a tool is to call.
type Guardrails struct {
	ReadOnly             bool     `json:"readOnly" jsonschema:"required"`
	ConfirmationRequired bool     `json:"confirmationRequired" jsonschema:"required"`
	RateLimitHint        *float64 `json:"rateLimitHint,omitempty"`
}

// Tool wraps one HTTP endpoint of an API.
type Tool struct {
	ID          string `json:"id" jsonschema:"required"`
	APIID       string `json:"apiId" jsonschema:"required"`
	Name        string `json:"name" jsonschema:"required"`
	Description string `json:"description" jsonschema:"required"`
	Enabled     bool   `json:"enabled" jsonschema:"required"`

	Method Method `json:"method" jsonschema:"required,enum=GET,enum=POST,enum=PUT,enum=DELETE,enum=PATCH"`
	Path   string `json:"path" jsonschema:"required"`

	RequestSchema  *schema.Schema `json:"requestSchema" jsonschema:"required"`
	ResponseSchema *schema.Schema `json:"responseSchema,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`
	AuthID  string            `json:"authId,omitempty"`

	Guardrails Guardrails `json:"guardrails" jsonschema:"required"`
}

// API is a remote HTTP service that tools call.
type API struct {
	ID            string `json:"id" jsonschema:"required"`
	Name          string `json:"name" jsonschema:"required"`
	BaseURL       string `json:"baseUrl" jsonschema:"required"`
	Description   string `json:"description,omitempty"`
	DefaultAuthID string `json:"defaultAuthId,omitempty"`
}

// Resource is a static document served next to the tools.
type Resource struct {
	ID          string `json:"id" jsonschema:"required"`
	Name        string `json:"name" jsonschema:"required"`
	URI         string `json:"uri" jsonschema:"required"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType" jsonschema:"required"`
	Content     string `json:"content"`
}

// Prompt is the single prompt a project may define.
type Prompt struct {
	Name        string `json:"name" jsonschema:"required"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content" jsonschema:"required"`
}

// Project is the aggregate root of a server definition. Actions in the store
// package never modify a Project in place; they return a new value.
type Project struct {
	ID          string       `json:"id" jsonschema:"required"`
	Name        string       `json:"name" jsonschema:"required"`
	Version     string       `json:"version" jsonschema:"required"`
	APIs        []API        `json:"apis" jsonschema:"required"`
	Tools       []Tool       `json:"tools" jsonschema:"required"`
	AuthSchemes []AuthScheme `json:"authSchemes" jsonschema:"required"`
	Resources   []Resource   `json:"resources"`
	Prompt      *Prompt      `json:"prompt,omitempty"`
	CreatedAt   string       `json:"createdAt" jsonschema:"required"`
	UpdatedAt   string       `json:"updatedAt" jsonschema:"required"`
}

// FindAPI returns the API with the given id.
func (p *Project) FindAPI(id string) (*API, bool) {
	for i := range p.APIs {
		if p.APIs[i].ID == id {
			return &p.APIs[i], true
		}
	}
	return nil, false
}

// FindTool returns the tool with the given id.
func (p *Project) FindTool(id string) (*Tool, bool) {
	for i := range p.Tools {
		if p.Tools[i].ID == id {
			return &p.Tools[i], true
		}
	}
	return nil, false
}

// FindToolByName returns the first tool with the given name.
func (p *Project) FindToolByName(name string) (*Tool, bool) {
	for i := range p.Tools {
		if p.Tools[i].Name == name {
			return &p.Tools[i], true
		}
	}
	return nil, false
}

// FindAuthScheme returns the auth scheme with the given id.
func (p *Project) FindAuthScheme(id string) (*AuthScheme, bool) {
	for i := range p.AuthSchemes {
		if p.AuthSchemes[i].ID == id {
			return &p.AuthSchemes[i], true
		}
	}
	return nil, false
}

// ToolsForAPI lists the tools owned by an API.
func (p *Project) ToolsForAPI(apiID string) []Tool {
	var tools []Tool
	for _, t := range p.Tools {
		if t.APIID == apiID {
			tools = append(tools, t)
		}
	}
	return tools
}

// EffectiveAuthID returns the tool's auth override, or its API's default.
func (p *Project) EffectiveAuthID(t *Tool) string {
	if t.AuthID != "" {
		return t.AuthID
	}
	if api, ok := p.FindAPI(t.APIID); ok {
		return api.DefaultAuthID
	}
	return ""
}
