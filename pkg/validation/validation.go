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

// Package validation checks a project for problems that would make the
// exported server broken or hard to use. It never changes the project.
package validation

import (
	"fmt"

	"github.com/asertorio/mcp-compiler/pkg/core"
	"github.com/asertorio/mcp-compiler/pkg/schema"
)

// Severity of an issue. Errors block export; warnings are advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Context  string   `json:"context,omitempty"`
}

func (i Issue) String() string {
	if i.Context == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", i.Severity, i.Message, i.Context)
}

// ValidateProject scans p and returns every issue found, in a stable order:
// project level first, then tools, then auth schemes.
func ValidateProject(p *core.Project) []Issue {
	var issues []Issue

	if len(p.APIs) == 0 {
		issues = append(issues, Issue{Severity: SeverityWarning, Message: "No APIs defined in project."})
	}

	for i := range p.Tools {
		issues = append(issues, validateTool(p, &p.Tools[i])...)
	}

	for _, auth := range p.AuthSchemes {
		if auth.Type != core.AuthTypeOAuth2 {
			continue
		}
		ctx := "Auth: " + auth.Name
		if auth.Config.ClientID == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("OAuth scheme \"%s\" missing Client ID.", auth.Name),
				Context:  ctx,
			})
		}
		if auth.Config.AuthURL == "" || auth.Config.TokenURL == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("OAuth scheme \"%s\" missing endpoints.", auth.Name),
				Context:  ctx,
			})
		}
	}
	return issues
}

func validateTool(p *core.Project, tool *core.Tool) []Issue {
	var issues []Issue
	ctx := "Tool: " + tool.Name
	add := func(sev Severity, format string) {
		issues = append(issues, Issue{Severity: sev, Message: fmt.Sprintf(format, tool.Name), Context: ctx})
	}

	if !tool.Enabled {
		add(SeverityWarning, "Tool \"%s\" is disabled and will not be exported.")
	}
	if tool.Description == "" {
		add(SeverityWarning, "Tool \"%s\" has no description. LLMs may struggle to use it.")
	}
	if tool.RequestSchema != nil && tool.RequestSchema.IsEmpty() {
		add(SeverityWarning, "Tool \"%s\" has an empty request schema.")
	} else if msg := ValidateSchema(tool.RequestSchema); msg != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("Tool \"%s\" has an invalid request schema: %s", tool.Name, msg),
			Context:  ctx,
		})
	}

	api, ok := p.FindAPI(tool.APIID)
	if !ok {
		add(SeverityError, "Tool \"%s\" belongs to a missing API.")
	} else if api.DefaultAuthID != "" {
		if _, ok := p.FindAuthScheme(api.DefaultAuthID); !ok {
			add(SeverityError, "Tool \"%s\" references a missing auth scheme.")
		}
	}
	if tool.AuthID != "" {
		if _, ok := p.FindAuthScheme(tool.AuthID); !ok {
			add(SeverityError, "Tool \"%s\" overrides auth with a missing scheme.")
		}
	}
	return issues
}

// ValidateSchema returns the first structural problem of s, or "" when s is
// nil or usable.
func ValidateSchema(s *schema.Schema) string {
	if s == nil {
		return ""
	}
	if problems := schema.Check(s); len(problems) > 0 {
		return problems[0]
	}
	return ""
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	return len(Errors(issues)) > 0
}

// Errors returns the error issues.
func Errors(issues []Issue) []Issue {
	return bySeverity(issues, SeverityError)
}

// Warnings returns the warning issues.
func Warnings(issues []Issue) []Issue {
	return bySeverity(issues, SeverityWarning)
}

func bySeverity(issues []Issue, sev Severity) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}
