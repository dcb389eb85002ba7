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

// Package openapi imports OpenAPI 3 documents as an API with one tool per
// operation.
package openapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pb33f/libopenapi"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
	"github.com/asertorio/mcp-compiler/pkg/sources"
)

const (
	// DefaultAPIName is used when the document has no title.
	DefaultAPIName = "Imported API"

	jsonMediaType = "application/json"
)

var newID = uuid.NewString

// Location tells where a document came from, for resolving relative refs.
type Location struct {
	BasePath string
	BaseURL  *url.URL
}

// Request names the document to import. Source is a URL, a file path, or the
// document text itself. When Data is set it holds the contents of an uploaded
// file and Source is only used to resolve relative references.
type Request struct {
	Source string
	Data   []byte
	Strict bool
}

// Options configures an Importer.
type Options struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	// Strict validates the document with kin-openapi before importing it and
	// fails on any model error.
	Strict bool
	// DevMode suppresses URL security warnings.
	DevMode bool
}

// Importer turns OpenAPI documents into import results.
type Importer struct {
	logger  *zap.Logger
	client  *http.Client
	adapter *LibopenAPIAdapter
	strict  bool
	devMode bool
}

// NewImporter creates an importer.
func NewImporter(opts Options) *Importer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Importer{
		logger:  logger,
		client:  client,
		adapter: NewLibopenAPIAdapter(logger),
		strict:  opts.Strict,
		devMode: opts.DevMode,
	}
}

// Import reads, resolves and translates a document. Any failure is reported
// as one error starting with "Failed to import OpenAPI: " and no partial
// result is returned.
func (i *Importer) Import(ctx context.Context, req Request) (*sources.ImportResult, error) {
	result, err := i.importDocument(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to import OpenAPI")
	}
	i.logger.Info("Imported OpenAPI document",
		zap.String("api", result.API.Name),
		zap.Int("tools", len(result.Tools)),
		zap.Int("authSchemes", len(result.AuthSchemes)))
	return result, nil
}

func (i *Importer) importDocument(ctx context.Context, req Request) (*sources.ImportResult, error) {
	data, loc, err := i.load(ctx, req)
	if err != nil {
		return nil, err
	}
	strict := req.Strict || i.strict
	if strict {
		if err := validateStrict(ctx, data, loc); err != nil {
			return nil, err
		}
	}
	model, err := i.adapter.BuildModel(data, loc, strict)
	if err != nil {
		return nil, err
	}
	result, err := translate(model)
	if err != nil {
		return nil, err
	}
	sources.WarnURLSecurity(i.logger, result.API.BaseURL, "Base URL", i.devMode)
	return result, nil
}

// load returns the document bytes. Uploaded and local files must parse as
// JSON or, failing that, as YAML.
func (i *Importer) load(ctx context.Context, req Request) ([]byte, Location, error) {
	switch {
	case req.Data != nil:
		loc := Location{}
		if req.Source != "" {
			loc.BasePath = filepath.Dir(req.Source)
		}
		return checkSyntax(req.Data, loc)
	case sources.IsURL(req.Source):
		sources.WarnURLSecurity(i.logger, req.Source, "OpenAPI spec", i.devMode)
		return i.fetch(ctx, req.Source)
	}

	data, err := os.ReadFile(req.Source)
	if err == nil {
		i.logger.Debug("Loading OpenAPI document", zap.String("file", req.Source))
		return checkSyntax(data, Location{BasePath: filepath.Dir(req.Source)})
	}
	if looksLikeDocument(req.Source) {
		return checkSyntax([]byte(req.Source), Location{})
	}
	return nil, Location{}, errors.Wrap(err, "failed to read OpenAPI document")
}

func (i *Importer) fetch(ctx context.Context, rawURL string) ([]byte, Location, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Location{}, errors.Wrap(err, "invalid URL format")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, Location{}, errors.Wrap(err, "failed to create request")
	}
	i.logger.Debug("Fetching OpenAPI document", zap.String("url", rawURL))
	resp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, Location{}, errors.Wrap(err, "failed to fetch OpenAPI document")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			i.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, Location{}, errors.Errorf("failed to fetch OpenAPI document: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Location{}, errors.Wrap(err, "failed to read OpenAPI document")
	}

	base := *u
	base.Path = path.Dir(u.Path)
	base.RawQuery = ""
	base.Fragment = ""
	return data, Location{BaseURL: &base}, nil
}

func checkSyntax(data []byte, loc Location) ([]byte, Location, error) {
	if json.Valid(data) {
		return data, loc, nil
	}
	if _, err := schema.YAMLToJSON(data); err != nil {
		return nil, loc, errors.Wrap(err, "document is neither JSON nor YAML")
	}
	return data, loc, nil
}

func looksLikeDocument(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.Contains(trimmed, "\n")
}

func translate(model *libopenapi.DocumentModel[v3.Document]) (*sources.ImportResult, error) {
	doc := model.Model
	api := core.API{ID: newID(), Name: DefaultAPIName}
	if doc.Info != nil {
		if doc.Info.Title != "" {
			api.Name = doc.Info.Title
		}
		api.Description = doc.Info.Description
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		api.BaseURL = doc.Servers[0].URL
	}

	result := &sources.ImportResult{
		API:         api,
		Tools:       []core.Tool{},
		AuthSchemes: translateSecuritySchemes(doc.Components),
	}

	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return result, nil
	}
	conv := newSchemaConverter()
	for pair := doc.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		p, item := pair.Key(), pair.Value()
		if item == nil {
			continue
		}
		for _, op := range operations(item) {
			tool, err := buildTool(conv, api.ID, p, op.method, item.Parameters, op.operation)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s", op.method, p)
			}
			result.Tools = append(result.Tools, tool)
		}
	}
	return result, nil
}

type methodOperation struct {
	method    core.Method
	operation *v3.Operation
}

func operations(item *v3.PathItem) []methodOperation {
	var ops []methodOperation
	for _, candidate := range []methodOperation{
		{core.MethodGet, item.Get},
		{core.MethodPost, item.Post},
		{core.MethodPut, item.Put},
		{core.MethodDelete, item.Delete},
		{core.MethodPatch, item.Patch},
	} {
		if candidate.operation != nil {
			ops = append(ops, candidate)
		}
	}
	return ops
}

func translateSecuritySchemes(components *v3.Components) []core.AuthScheme {
	schemes := []core.AuthScheme{}
	if components == nil || components.SecuritySchemes == nil {
		return schemes
	}
	for pair := components.SecuritySchemes.First(); pair != nil; pair = pair.Next() {
		name, s := pair.Key(), pair.Value()
		if s == nil {
			continue
		}
		auth := core.AuthScheme{Name: name}
		switch {
		case s.Type == "apiKey":
			auth.Type = core.AuthTypeAPIKey
			auth.Config = core.AuthConfig{HeaderName: s.Name}
		case s.Type == "http" && strings.EqualFold(s.Scheme, "bearer"):
			auth.Type = core.AuthTypeBearer
		case s.Type == "http" && strings.EqualFold(s.Scheme, "basic"):
			auth.Type = core.AuthTypeBasic
		case s.Type == "oauth2":
			auth.Type = core.AuthTypeOAuth2
			auth.Config = core.AuthConfig{Scopes: []string{}}
		default:
			continue
		}
		auth.ID = newID()
		schemes = append(schemes, auth)
	}
	return schemes
}

func buildTool(conv *schemaConverter, apiID, p string, method core.Method, shared []*v3.Parameter, op *v3.Operation) (core.Tool, error) {
	request, err := requestSchema(conv, mergeParameters(shared, op.Parameters), op.RequestBody)
	if err != nil {
		return core.Tool{}, err
	}
	response, err := responseSchema(conv, op.Responses)
	if err != nil {
		return core.Tool{}, err
	}

	description := op.Summary
	if description == "" {
		description = op.Description
	}
	return core.Tool{
		ID:             newID(),
		APIID:          apiID,
		Name:           toolName(method, p, op.OperationId),
		Description:    description,
		Enabled:        true,
		Method:         method,
		Path:           p,
		RequestSchema:  request,
		ResponseSchema: response,
		Guardrails: core.Guardrails{
			ReadOnly:             method == core.MethodGet,
			ConfirmationRequired: method != core.MethodGet,
		},
	}, nil
}

var braceRemover = strings.NewReplacer("{", "", "}", "")

// toolName uses the operation id, or method and path joined by underscores.
func toolName(method core.Method, p, operationID string) string {
	if operationID != "" {
		return operationID
	}
	return strings.ToLower(string(method)) + "_" + braceRemover.Replace(strings.ReplaceAll(p, "/", "_"))
}

// mergeParameters combines path item and operation parameters. An operation
// parameter replaces a path item parameter with the same name and location.
func mergeParameters(shared, own []*v3.Parameter) []*v3.Parameter {
	merged := make([]*v3.Parameter, 0, len(shared)+len(own))
	for _, p := range shared {
		if p != nil {
			merged = append(merged, p)
		}
	}
	for _, p := range own {
		if p == nil {
			continue
		}
		replaced := false
		for i, existing := range merged {
			if existing.Name == p.Name && existing.In == p.In {
				merged[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, p)
		}
	}
	return merged
}

// requestSchema builds the tool input from query and path parameters and the
// JSON request body. Body properties are applied after parameters, so a body
// property replaces a parameter of the same name.
func requestSchema(conv *schemaConverter, params []*v3.Parameter, body *v3.RequestBody) (*schema.Schema, error) {
	paramProps := schema.NewProperties()
	var paramRequired []string
	for _, p := range params {
		if p.In != "query" && p.In != "path" {
			continue
		}
		prop, err := conv.convert(p.Schema)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", p.Name)
		}
		if prop == nil {
			prop = schema.New(schema.TypeString)
		}
		if prop.Raw == nil {
			prop = prop.Clone()
			prop.Description = nil
			if p.Description != "" {
				prop.SetDescription(p.Description)
			}
		}
		paramProps.Set(p.Name, prop)
		if p.Required != nil && *p.Required {
			paramRequired = append(paramRequired, p.Name)
		}
	}

	var bodySchema *schema.Schema
	if body != nil {
		if media := jsonMedia(body.Content); media != nil && media.Schema != nil {
			s, err := conv.convert(media.Schema)
			if err != nil {
				return nil, errors.Wrap(err, "request body")
			}
			bodySchema = s
		}
	}

	switch {
	case bodySchema != nil && paramProps.Len() > 0:
		out := &schema.Schema{Type: schema.TypeObject, Properties: paramProps}
		if bodySchema.Properties != nil {
			for pair := bodySchema.Properties.Oldest(); pair != nil; pair = pair.Next() {
				out.Properties.Set(pair.Key, pair.Value)
			}
		}
		out.Required = unique(append(paramRequired, bodySchema.Required...))
		return out, nil
	case bodySchema != nil:
		return bodySchema, nil
	case paramProps.Len() > 0:
		out := &schema.Schema{Type: schema.TypeObject, Properties: paramProps}
		if len(paramRequired) > 0 {
			out.Required = paramRequired
		}
		return out, nil
	default:
		return &schema.Schema{}, nil
	}
}

// responseSchema returns the JSON schema of the first 2xx response, if any.
// Numeric codes are tried in ascending order, then the others such as 2XX in
// document order.
func responseSchema(conv *schemaConverter, responses *v3.Responses) (*schema.Schema, error) {
	if responses == nil || responses.Codes == nil {
		return nil, nil
	}
	var codes []string
	for pair := responses.Codes.First(); pair != nil; pair = pair.Next() {
		if strings.HasPrefix(pair.Key(), "2") {
			codes = append(codes, pair.Key())
		}
	}
	if len(codes) == 0 {
		return nil, nil
	}
	code := orderCodes(codes)[0]
	resp := responses.Codes.GetOrZero(code)
	if resp == nil {
		return nil, nil
	}
	media := jsonMedia(resp.Content)
	if media == nil || media.Schema == nil {
		return nil, nil
	}
	s, err := conv.convert(media.Schema)
	if err != nil {
		return nil, errors.Wrapf(err, "response %s", code)
	}
	return s, nil
}

// orderCodes sorts canonical integer codes ascending ahead of the rest, which
// keep their relative order.
func orderCodes(codes []string) []string {
	out := slices.Clone(codes)
	sort.SliceStable(out, func(i, j int) bool {
		a, aNum := integerKey(out[i])
		b, bNum := integerKey(out[j])
		switch {
		case aNum && bNum:
			return a < b
		default:
			return aNum && !bNum
		}
	})
	return out
}

func integerKey(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}

func jsonMedia(content *orderedmap.Map[string, *v3.MediaType]) *v3.MediaType {
	if content == nil {
		return nil
	}
	for pair := content.First(); pair != nil; pair = pair.Next() {
		if pair.Key() == jsonMediaType {
			return pair.Value()
		}
	}
	return nil
}

func unique(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
