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
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
)

// ResultProcessor turns the HTTP response into the tool result. Error
// statuses produce an error result so the client can tell them apart.
type ResultProcessor struct{}

func (p *ResultProcessor) Name() string { return "result" }

func (p *ResultProcessor) Stage() Stage { return StagePostResponse }

func (p *ResultProcessor) Process(_ context.Context, data *Data) error {
	if data.HTTPResponse == nil {
		return errors.New("HTTP response is required to build a result")
	}
	text := fmt.Sprintf("HTTP %s %s\nStatus: %d\nResponse: %s",
		data.HTTPRequest.Method, data.HTTPRequest.URL, data.HTTPResponse.StatusCode, string(data.Body))
	if data.HTTPResponse.StatusCode >= 400 {
		data.Result = mcp.NewToolResultError(text)
		return nil
	}
	data.Result = mcp.NewToolResultText(text)
	return nil
}
