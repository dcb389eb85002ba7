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

// Package processors holds the steps applied to an outgoing tool call and its
// response, such as attaching credentials.
package processors

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/asertorio/mcp-compiler/pkg/core"
)

// Stage is the point of a call at which a processor runs.
type Stage string

const (
	StagePreRequest   Stage = "pre_request"
	StagePostResponse Stage = "post_response"
)

// Data contains the data passed between processors
type Data struct {
	// Request data
	Request     *mcp.CallToolRequest
	Tool        *core.Tool
	HTTPRequest *http.Request

	// Auth is the effective scheme of the tool, nil for none. Secret is the
	// value stored under its secret id.
	Auth   *core.AuthScheme
	Secret string

	// Response data
	HTTPResponse *http.Response
	Body         []byte
	Result       *mcp.CallToolResult
}

// Processor defines the interface for all processor implementations
type Processor interface {
	// Name returns the processor name
	Name() string

	// Stage returns the processing stage
	Stage() Stage

	// Process executes the processor logic
	Process(ctx context.Context, data *Data) error
}

// Chain runs processors in order and stops at the first error.
type Chain struct {
	processors []Processor
}

// NewChain creates a chain.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Add appends a processor.
func (c *Chain) Add(p Processor) {
	c.processors = append(c.processors, p)
}

// Len returns the number of processors.
func (c *Chain) Len() int {
	return len(c.processors)
}

// Process executes all processors in the chain
func (c *Chain) Process(ctx context.Context, data *Data) error {
	for _, p := range c.processors {
		if err := p.Process(ctx, data); err != nil {
			return err
		}
	}
	return nil
}
