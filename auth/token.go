// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenValidator validates bearer JWTs for the upload service.
type TokenValidator struct {
	options []jwt.ParseOption
}

// NewTokenValidator creates a validator that checks standard claims
// (expiry, not-before) on every token. Signature verification options
// such as [jwt.WithKey] are supplied by the caller.
func NewTokenValidator(options ...jwt.ParseOption) *TokenValidator {
	opts := make([]jwt.ParseOption, 0, len(options)+1)
	opts = append(opts, jwt.WithValidate(true))
	opts = append(opts, options...)
	return &TokenValidator{options: opts}
}

// Validate parses and validates tokenString, returning the authenticated
// user it identifies.
func (v *TokenValidator) Validate(tokenString string) (User, error) {
	token, err := jwt.Parse([]byte(tokenString), v.options...)
	if err != nil {
		return UnauthenticatedUser{}, fmt.Errorf("failed to parse and validate token: %w", err)
	}

	if exp, ok := token.Expiration(); ok && exp.Before(time.Now()) {
		return UnauthenticatedUser{}, fmt.Errorf("token is expired")
	}

	var subject string
	if sub, ok := token.Subject(); ok {
		subject = sub
	}
	return TokenUser{Subject: subject}, nil
}

type userContextKey struct{}

// ContextWithUser returns a context carrying user.
func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the user from ctx. It returns
// [UnauthenticatedUser] when no user is present.
func UserFromContext(ctx context.Context) User {
	if user, ok := ctx.Value(userContextKey{}).(User); ok {
		return user
	}
	return UnauthenticatedUser{}
}

// Middleware guards next with bearer-token authentication. Requests
// without a valid token are rejected with 401; the authenticated user
// is threaded through the request context.
func Middleware(validator *TokenValidator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		user, err := validator.Validate(tokenString)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}
