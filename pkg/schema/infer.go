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

package schema

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Infer derives a schema from a decoded JSON value.
//
// Objects mark every key as required, and `required` is omitted for an empty
// object. Arrays take their items schema from the first non-null element only.
// Plain Go maps have no key order, so their keys are sorted. Use InferJSON or
// an *orderedmap.OrderedMap to keep document order. Unsupported values fall
// back to a string schema.
func Infer(value any) *Schema {
	switch v := value.(type) {
	case nil:
		return New(TypeNull)
	case bool:
		return New(TypeBoolean)
	case string:
		return New(TypeString)
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return New(TypeNumber)
	case []any:
		s := New(TypeArray)
		for _, elem := range v {
			if elem != nil {
				s.Items = Infer(elem)
				break
			}
		}
		return s
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := NewObject()
		for _, k := range keys {
			s.Properties.Set(k, Infer(v[k]))
		}
		if len(keys) > 0 {
			s.Required = keys
		}
		return s
	case *orderedmap.OrderedMap[string, any]:
		s := NewObject()
		var required []string
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			s.Properties.Set(pair.Key, Infer(pair.Value))
			required = append(required, pair.Key)
		}
		if len(required) > 0 {
			s.Required = required
		}
		return s
	default:
		return New(TypeString)
	}
}

// InferJSON parses a JSON document and infers its schema in document key order.
func InferJSON(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	s, err := inferToken(dec)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidJSON, err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(ErrInvalidJSON, "unexpected data after top-level value")
	}
	return s, nil
}

func inferToken(dec *json.Decoder) (*Schema, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return Infer(tok), nil
	}
	switch delim {
	case '{':
		s := NewObject()
		var required []string
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			child, err := inferToken(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := s.Properties.Get(key); !seen {
				required = append(required, key)
			}
			s.Properties.Set(key, child)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		if len(required) > 0 {
			s.Required = required
		}
		return s, nil
	case '[':
		s := New(TypeArray)
		for dec.More() {
			child, err := inferToken(dec)
			if err != nil {
				return nil, err
			}
			if s.Items == nil && child.Type != TypeNull {
				s.Items = child
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Errorf("unexpected delimiter %q", delim)
	}
}
