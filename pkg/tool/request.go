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

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// BuildRequest turns tool arguments into an HTTP request against baseURL.
// Path placeholders are filled from the arguments of the same name. The
// remaining arguments are sent as the query string for GET and DELETE and as
// a JSON object body otherwise.
func BuildRequest(ctx context.Context, baseURL string, t *core.Tool, args map[string]any) (*http.Request, error) {
	path, rest, err := substitutePathParams(t.Path, args)
	if err != nil {
		return nil, err
	}

	target := strings.TrimRight(baseURL, "/") + path
	var body io.Reader
	switch t.Method {
	case core.MethodGet, core.MethodDelete:
		if query := encodeQueryParams(rest); query != "" {
			target += "?" + query
		}
	default:
		if len(rest) > 0 {
			data, err := json.Marshal(rest)
			if err != nil {
				return nil, errors.Wrap(err, "failed to encode request body")
			}
			body = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, string(t.Method), target, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// substitutePathParams fills the placeholders of path and returns the
// arguments that were not used.
func substitutePathParams(path string, args map[string]any) (string, map[string]any, error) {
	rest := make(map[string]any, len(args))
	for k, v := range args {
		rest[k] = v
	}
	for _, name := range schema.PathParams(path) {
		v, ok := rest[name]
		if !ok || v == nil {
			return "", nil, errors.Errorf("missing path parameter %s", name)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(formatValue(v)))
		delete(rest, name)
	}
	return path, rest, nil
}

// encodeQueryParams encodes arguments in key order. Lists repeat the key.
func encodeQueryParams(params map[string]any) string {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				values.Add(k, formatValue(item))
			}
		default:
			values.Set(k, formatValue(v))
		}
	}
	return values.Encode()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", val)
	}
}
