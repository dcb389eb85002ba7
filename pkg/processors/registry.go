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

package processors

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/asertorio/mcp-compiler/pkg/core"
)

// Registry manages available processors by name. Credential processors are
// registered under the auth type they serve.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates a new processor registry
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register adds a processor, replacing one with the same name.
func (r *Registry) Register(p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[p.Name()] = p
}

// Get retrieves a processor by name
func (r *Registry) Get(name string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	return p, ok
}

// List returns all processor names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByStage returns the processors of a stage, sorted by name.
func (r *Registry) ByStage(stage Stage) []Processor {
	var out []Processor
	for _, name := range r.List() {
		if p, _ := r.Get(name); p.Stage() == stage {
			out = append(out, p)
		}
	}
	return out
}

// Authenticate applies data.Auth to data.HTTPRequest with the processor
// registered for the scheme type. No scheme, or type none, is a no-op.
func (r *Registry) Authenticate(ctx context.Context, data *Data) error {
	if data.Auth == nil || data.Auth.Type == core.AuthTypeNone {
		return nil
	}
	if data.HTTPRequest == nil {
		return errors.New("HTTP request is required for authentication")
	}
	p, ok := r.Get(string(data.Auth.Type))
	if !ok {
		return errors.Errorf("unsupported auth type: %s", data.Auth.Type)
	}
	return errors.Wrapf(p.Process(ctx, data), "auth scheme %q", data.Auth.Name)
}
