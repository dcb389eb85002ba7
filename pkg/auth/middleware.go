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

package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Kinds of request errors found before a token is validated.
const (
	KindMissingToken  = "missing_token"
	KindInvalidFormat = "invalid_format"
	KindEmptyToken    = "empty_token"
)

// Error is a malformed or missing Authorization header.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Middleware checks bearer tokens before passing requests on.
type Middleware struct {
	validator *TokenValidator
	required  bool
	logger    *zap.Logger
}

// NewMiddleware creates the middleware for an enabled configuration.
func NewMiddleware(config *Config, logger *zap.Logger) (*Middleware, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v, err := NewTokenValidator(config)
	if err != nil {
		return nil, err
	}
	logger.Info("Bearer authentication enabled",
		zap.String("keys", config.KeySource()),
		zap.Bool("required", config.Required))
	return &Middleware{validator: v, required: config.Required, logger: logger}, nil
}

// Authenticate returns the caller of req. It returns nil and no error for an
// anonymous request when tokens are optional.
func (m *Middleware) Authenticate(req *http.Request) (*Caller, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		if m.required {
			return nil, &Error{Kind: KindMissingToken, Message: "Authorization header required"}
		}
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, &Error{Kind: KindInvalidFormat, Message: "Authorization header must use Bearer format"}
	}
	if token == "" {
		return nil, &Error{Kind: KindEmptyToken, Message: "Bearer token cannot be empty"}
	}
	return m.validator.Validate(token)
}

// Wrap returns next guarded by the token check.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := m.Authenticate(r)
		if err != nil {
			m.logger.Warn("Authentication failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
			code, text := statusFor(err)
			http.Error(w, text, code)
			return
		}
		if caller != nil {
			m.logger.Debug("Authenticated request", zap.String("caller", caller.DisplayName()))
			r = r.WithContext(WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) (int, string) {
	var authErr *Error
	if errors.As(err, &authErr) {
		switch authErr.Kind {
		case KindMissingToken:
			return http.StatusUnauthorized, "Authorization required"
		case KindInvalidFormat:
			return http.StatusBadRequest, "Invalid authorization format"
		case KindEmptyToken:
			return http.StatusBadRequest, "Empty bearer token"
		}
	}
	switch {
	case errors.Is(err, ErrInsufficientScope):
		return http.StatusForbidden, "Insufficient permissions"
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return http.StatusUnauthorized, "Invalid token signature"
	default:
		return http.StatusUnauthorized, "Authentication failed"
	}
}

// Close releases the validator.
func (m *Middleware) Close() error {
	return m.validator.Close()
}
