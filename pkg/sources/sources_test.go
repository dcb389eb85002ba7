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

package sources

import (
	"context"
	"net"
	"reflect"
	"testing"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCheckURLSecurity(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		expectedIssues []string
	}{
		{"safe https", "https://api.example.com/openapi.json", nil},
		{"localhost", "http://localhost:8080/openapi.json", []string{"localhost"}},
		{"loopback", "http://127.0.0.1:8080/openapi.json", []string{"localhost"}},
		{"ipv6 loopback", "http://[::1]:8080/openapi.json", []string{"localhost"}},
		{"private 10/8", "http://10.0.0.1:8080/openapi.json", []string{"private_ip"}},
		{"private 172.16/12", "http://172.16.0.1/", []string{"private_ip"}},
		{"private 192.168/16", "https://192.168.1.100/api", []string{"private_ip"}},
		{"unique local ipv6", "http://[fd00::1]/", []string{"private_ip"}},
		{"aws metadata", "http://169.254.169.254/latest/meta-data/", []string{"cloud_metadata", "link_local"}},
		{"gcp metadata", "http://metadata.google.internal/computeMetadata/v1/", []string{"cloud_metadata"}},
		{"link local", "http://169.254.1.1:8080/openapi.json", []string{"link_local"}},
		{"file path", "/path/to/openapi.json", nil},
		{"not a url", "not-a-url", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, issue := range CheckURLSecurity(tt.url) {
				got = append(got, issue.Type)
				if issue.URL != tt.url {
					t.Errorf("issue URL = %q, want %q", issue.URL, tt.url)
				}
			}
			if !reflect.DeepEqual(got, tt.expectedIssues) {
				t.Errorf("CheckURLSecurity(%q) = %v, want %v", tt.url, got, tt.expectedIssues)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"8.8.8.8", false},
		{"10.255.255.255", true},
		{"172.31.255.255", true},
		{"172.32.0.1", false},
		{"192.168.0.1", true},
		{"2001:4860:4860::8888", false},
		{"fc00::1", true},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivateIP(net.ParseIP(tt.ip)); got != tt.expected {
				t.Errorf("isPrivateIP(%s) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestWarnURLSecurity(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	WarnURLSecurity(logger, "http://localhost:3000", "Base URL", true)
	if logs.Len() != 0 {
		t.Fatalf("dev mode should not warn, got %d entries", logs.Len())
	}

	WarnURLSecurity(logger, "https://api.example.com", "Base URL", false)
	if logs.Len() != 0 {
		t.Fatalf("safe URL should not warn, got %d entries", logs.Len())
	}

	WarnURLSecurity(logger, "http://localhost:3000", "Base URL", false)
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["kind"] != "Base URL" {
		t.Errorf("kind = %v, want Base URL", fields["kind"])
	}
}

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }

func (s stubSource) Command(commit Commit) *cli.Command {
	return &cli.Command{
		Name: s.name,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return commit(ctx, &ImportResult{})
		},
	}
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(stubSource{"openapi"}, stubSource{"example"})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := r.List(); !reflect.DeepEqual(got, []string{"example", "openapi"}) {
		t.Errorf("List() = %v", got)
	}
	if _, ok := r.Get("openapi"); !ok {
		t.Error("openapi source not found")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unexpected source")
	}
	if err := r.Register(stubSource{"openapi"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	commits := 0
	cmds := r.Commands(func(ctx context.Context, result *ImportResult) error {
		commits++
		return nil
	})
	if len(cmds) != 2 || cmds[0].Name != "example" {
		t.Fatalf("unexpected commands: %v", cmds)
	}
	if err := cmds[1].Run(context.Background(), []string{"openapi"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
}
