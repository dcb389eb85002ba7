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
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// URLSecurityIssue represents a potential security concern with a URL
type URLSecurityIssue struct {
	Type        string
	Description string
	URL         string
}

var cloudMetadataHosts = []string{
	"169.254.169.254",          // AWS/Azure metadata
	"metadata.google.internal", // GCP metadata
	"100.100.100.200",          // Alibaba Cloud metadata
}

var privateNetworks = mustParseCIDRs("10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7")

// CheckURLSecurity reports why an import source or API base URL may reach
// something it should not. Non-HTTP inputs such as file paths have no issues.
func CheckURLSecurity(rawURL string) []URLSecurityIssue {
	if !IsURL(rawURL) {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	var issues []URLSecurityIssue
	add := func(kind, desc string) {
		issues = append(issues, URLSecurityIssue{Type: kind, Description: desc, URL: rawURL})
	}

	hostname := parsed.Hostname()
	if hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1" {
		add("localhost", "URL points to localhost/loopback address")
	}
	ip := net.ParseIP(hostname)
	if ip != nil && isPrivateIP(ip) {
		add("private_ip", "URL points to private IP address")
	}
	for _, host := range cloudMetadataHosts {
		if hostname == host {
			add("cloud_metadata", "URL points to cloud metadata endpoint")
			break
		}
	}
	if ip != nil && ip.IsLinkLocalUnicast() {
		add("link_local", "URL points to link-local address")
	}
	return issues
}

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}

// WarnURLSecurity logs the issues CheckURLSecurity finds. Dev mode silences it.
func WarnURLSecurity(logger *zap.Logger, rawURL, urlType string, devMode bool) {
	if devMode || logger == nil {
		return
	}
	issues := CheckURLSecurity(rawURL)
	if len(issues) == 0 {
		return
	}
	kinds := make([]string, 0, len(issues))
	for _, issue := range issues {
		kinds = append(kinds, issue.Type)
	}
	logger.Warn("URL has potential security concerns",
		zap.String("kind", urlType),
		zap.String("url", rawURL),
		zap.Strings("issues", kinds),
		zap.String("hint", "use --dev-mode to suppress these warnings for local development"),
	)
}
