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

// Package store implements the project actions. Every action takes the
// current project and returns a new one; slices that change are rebuilt and
// entities are copied before they are modified, so a caller holding the old
// value never sees the change.
package store

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// ErrNotFound is returned when an action names an entity that does not exist.
var ErrNotFound = errors.New("not found")

const (
	// DefaultVersion is the version of a new project.
	DefaultVersion = "1.0.0"

	DefaultResourceName     = "New Resource"
	DefaultResourceMimeType = "text/markdown"
)

var (
	now   = time.Now
	newID = uuid.NewString
)

var (
	resourceSpaces  = regexp.MustCompile(`\s+`)
	resourceInvalid = regexp.MustCompile(`[^a-z0-9-]`)
)

func touch(p *core.Project) *core.Project {
	next := *p
	next.UpdatedAt = core.Timestamp(now())
	return &next
}

// CreateProject returns an empty project.
func CreateProject(name string) *core.Project {
	ts := core.Timestamp(now())
	return &core.Project{
		ID:          newID(),
		Name:        name,
		Version:     DefaultVersion,
		APIs:        []core.API{},
		Tools:       []core.Tool{},
		AuthSchemes: []core.AuthScheme{},
		Resources:   []core.Resource{},
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// MetadataUpdate holds the editable project metadata.
type MetadataUpdate struct {
	Name    string
	Version string
}

// UpdateProjectMetadata sets the project name and version.
func UpdateProjectMetadata(p *core.Project, u MetadataUpdate) *core.Project {
	next := touch(p)
	next.Name = u.Name
	next.Version = u.Version
	return next
}

// APIInput describes a new API.
type APIInput struct {
	Name          string
	BaseURL       string
	Description   string
	DefaultAuthID string
}

// AddAPI appends an API with a fresh id.
func AddAPI(p *core.Project, in APIInput) (*core.Project, core.API) {
	api := core.API{
		ID:            newID(),
		Name:          in.Name,
		BaseURL:       in.BaseURL,
		Description:   in.Description,
		DefaultAuthID: in.DefaultAuthID,
	}
	next := touch(p)
	next.APIs = append(slices.Clip(p.APIs), api)
	return next, api
}

// ImportAPIData appends one API with its tools and auth schemes in a single
// step. The entities keep the ids they were given.
func ImportAPIData(p *core.Project, api core.API, tools []core.Tool, authSchemes []core.AuthScheme) *core.Project {
	next := touch(p)
	next.APIs = append(slices.Clip(p.APIs), api)
	next.Tools = append(slices.Clip(p.Tools), tools...)
	next.AuthSchemes = append(slices.Clip(p.AuthSchemes), authSchemes...)
	return next
}

// UpdateAPI applies fn to a copy of the API with the given id.
func UpdateAPI(p *core.Project, id string, fn func(*core.API)) (*core.Project, error) {
	i := slices.IndexFunc(p.APIs, func(a core.API) bool { return a.ID == id })
	if i < 0 {
		return p, errors.Wrapf(ErrNotFound, "api %s", id)
	}
	next := touch(p)
	next.APIs = slices.Clone(p.APIs)
	fn(&next.APIs[i])
	next.APIs[i].ID = id
	return next, nil
}

// DeleteAPI removes an API and every tool it owns. Auth schemes are kept.
func DeleteAPI(p *core.Project, id string) (*core.Project, error) {
	if _, ok := p.FindAPI(id); !ok {
		return p, errors.Wrapf(ErrNotFound, "api %s", id)
	}
	next := touch(p)
	next.APIs = filter(p.APIs, func(a core.API) bool { return a.ID != id })
	next.Tools = filter(p.Tools, func(t core.Tool) bool { return t.APIID != id })
	return next, nil
}

// ToolInput describes a new tool.
type ToolInput struct {
	APIID          string
	Name           string
	Description    string
	Method         core.Method
	Path           string
	RequestSchema  *schema.Schema
	ResponseSchema *schema.Schema
	Headers        map[string]string
	AuthID         string
}

// AddTool appends an enabled tool with default guardrails. The request schema
// gets a required property for every path parameter.
func AddTool(p *core.Project, in ToolInput) (*core.Project, core.Tool) {
	tool := core.Tool{
		ID:             newID(),
		APIID:          in.APIID,
		Name:           in.Name,
		Description:    in.Description,
		Enabled:        true,
		Method:         in.Method,
		Path:           in.Path,
		RequestSchema:  schema.ReconcilePathParams(in.RequestSchema, in.Path),
		ResponseSchema: in.ResponseSchema,
		Headers:        maps.Clone(in.Headers),
		AuthID:         in.AuthID,
		Guardrails:     core.Guardrails{ReadOnly: false, ConfirmationRequired: false},
	}
	next := touch(p)
	next.Tools = append(slices.Clip(p.Tools), tool)
	return next, tool
}

// UpdateTool applies fn to a copy of the tool with the given id.
func UpdateTool(p *core.Project, id string, fn func(*core.Tool)) (*core.Project, error) {
	i := slices.IndexFunc(p.Tools, func(t core.Tool) bool { return t.ID == id })
	if i < 0 {
		return p, errors.Wrapf(ErrNotFound, "tool %s", id)
	}
	next := touch(p)
	next.Tools = slices.Clone(p.Tools)
	t := &next.Tools[i]
	t.Headers = maps.Clone(t.Headers)
	fn(t)
	t.ID = id
	return next, nil
}

// SetToolPath changes a tool's path template and adds any new path
// parameters to its request schema. Parameters dropped from the path stay in
// the schema.
func SetToolPath(p *core.Project, id, path string) (*core.Project, error) {
	return UpdateTool(p, id, func(t *core.Tool) {
		t.Path = path
		t.RequestSchema = schema.ReconcilePathParams(t.RequestSchema, path)
	})
}

// DeleteTool removes a tool.
func DeleteTool(p *core.Project, id string) (*core.Project, error) {
	if _, ok := p.FindTool(id); !ok {
		return p, errors.Wrapf(ErrNotFound, "tool %s", id)
	}
	next := touch(p)
	next.Tools = filter(p.Tools, func(t core.Tool) bool { return t.ID != id })
	return next, nil
}

// AuthSchemeInput describes a new auth scheme.
type AuthSchemeInput struct {
	Name   string
	Type   core.AuthType
	Config core.AuthConfig
}

// AddAuthScheme appends an auth scheme with a fresh id.
func AddAuthScheme(p *core.Project, in AuthSchemeInput) (*core.Project, core.AuthScheme) {
	auth := core.AuthScheme{ID: newID(), Name: in.Name, Type: in.Type, Config: in.Config}
	next := touch(p)
	next.AuthSchemes = append(slices.Clip(p.AuthSchemes), auth)
	return next, auth
}

// UpdateAuthScheme applies fn to a copy of the auth scheme with the given id.
func UpdateAuthScheme(p *core.Project, id string, fn func(*core.AuthScheme)) (*core.Project, error) {
	i := slices.IndexFunc(p.AuthSchemes, func(a core.AuthScheme) bool { return a.ID == id })
	if i < 0 {
		return p, errors.Wrapf(ErrNotFound, "auth scheme %s", id)
	}
	next := touch(p)
	next.AuthSchemes = slices.Clone(p.AuthSchemes)
	a := &next.AuthSchemes[i]
	a.Config.Scopes = slices.Clone(a.Config.Scopes)
	a.Config.AdditionalAuthParams = maps.Clone(a.Config.AdditionalAuthParams)
	a.Config.AdditionalTokenParams = maps.Clone(a.Config.AdditionalTokenParams)
	fn(a)
	a.ID = id
	return next, nil
}

// DeleteAuthScheme removes an auth scheme. APIs and tools that reference it
// keep the dangling id; validation reports them.
func DeleteAuthScheme(p *core.Project, id string) (*core.Project, error) {
	if _, ok := p.FindAuthScheme(id); !ok {
		return p, errors.Wrapf(ErrNotFound, "auth scheme %s", id)
	}
	next := touch(p)
	next.AuthSchemes = filter(p.AuthSchemes, func(a core.AuthScheme) bool { return a.ID != id })
	return next, nil
}

// ResourceURIFromName derives a resource URI from its display name.
func ResourceURIFromName(name string) string {
	slug := resourceSpaces.ReplaceAllString(strings.ToLower(name), "-")
	return "resource://" + resourceInvalid.ReplaceAllString(slug, "")
}

// ResourceInput describes a new resource. Empty fields get defaults.
type ResourceInput struct {
	Name        string
	URI         string
	Description string
	MimeType    string
	Content     string
}

// AddResource appends a resource with a fresh id.
func AddResource(p *core.Project, in ResourceInput) (*core.Project, core.Resource) {
	r := core.Resource{
		ID:          newID(),
		Name:        in.Name,
		URI:         in.URI,
		Description: in.Description,
		MimeType:    in.MimeType,
		Content:     in.Content,
	}
	if r.Name == "" {
		r.Name = DefaultResourceName
	}
	if r.URI == "" {
		r.URI = ResourceURIFromName(r.Name)
	}
	if r.MimeType == "" {
		r.MimeType = DefaultResourceMimeType
	}
	if r.Content == "" {
		r.Content = "# " + r.Name + "\n\nAdd your content here..."
	}
	next := touch(p)
	next.Resources = append(slices.Clip(p.Resources), r)
	return next, r
}

// UpdateResource applies fn to a copy of the resource with the given id.
func UpdateResource(p *core.Project, id string, fn func(*core.Resource)) (*core.Project, error) {
	i := slices.IndexFunc(p.Resources, func(r core.Resource) bool { return r.ID == id })
	if i < 0 {
		return p, errors.Wrapf(ErrNotFound, "resource %s", id)
	}
	next := touch(p)
	next.Resources = slices.Clone(p.Resources)
	fn(&next.Resources[i])
	next.Resources[i].ID = id
	return next, nil
}

// RenameResource sets a resource's name and the URI derived from it.
func RenameResource(p *core.Project, id, name string) (*core.Project, error) {
	return UpdateResource(p, id, func(r *core.Resource) {
		r.Name = name
		r.URI = ResourceURIFromName(name)
	})
}

// DeleteResource removes a resource.
func DeleteResource(p *core.Project, id string) (*core.Project, error) {
	if !slices.ContainsFunc(p.Resources, func(r core.Resource) bool { return r.ID == id }) {
		return p, errors.Wrapf(ErrNotFound, "resource %s", id)
	}
	next := touch(p)
	next.Resources = filter(p.Resources, func(r core.Resource) bool { return r.ID != id })
	return next, nil
}

// DefaultPrompt is the prompt offered when a project has none.
func DefaultPrompt() core.Prompt {
	return core.Prompt{
		Name:        "default_prompt",
		Description: "Default system prompt",
		Content:     "You are a helpful assistant.",
	}
}

// UpdatePrompt sets the project prompt. Nil removes it.
func UpdatePrompt(p *core.Project, prompt *core.Prompt) *core.Project {
	next := touch(p)
	if prompt == nil {
		next.Prompt = nil
		return next
	}
	cp := *prompt
	next.Prompt = &cp
	return next
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
