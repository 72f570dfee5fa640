// Copyright 2025 The Go FormFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth provides bearer-token authentication for the formflow
// upload server. It implements user identity types and JWT validation
// built on the jwx token library.
package auth

// User represents an authenticated or unauthenticated caller of the
// upload service. This interface provides the minimal contract for
// authentication status and identity information.
type User interface {
	// IsAuthenticated returns true if the user is authenticated, false otherwise.
	IsAuthenticated() bool

	// UserName returns the username of the user. For unauthenticated
	// users, this returns an empty string.
	UserName() string
}

// UnauthenticatedUser represents an unauthenticated caller. This
// implements the Null Object pattern, providing safe defaults for
// authentication operations without requiring nil checks.
//
// UnauthenticatedUser is safe to use as a zero value and is immutable.
type UnauthenticatedUser struct{}

// IsAuthenticated always returns false for unauthenticated users.
func (u UnauthenticatedUser) IsAuthenticated() bool {
	return false
}

// UserName always returns an empty string for unauthenticated users.
func (u UnauthenticatedUser) UserName() string {
	return ""
}

// TokenUser represents a caller authenticated by a validated token.
type TokenUser struct {
	// Subject is the token's subject claim.
	Subject string
}

// IsAuthenticated always returns true for token users.
func (u TokenUser) IsAuthenticated() bool {
	return true
}

// UserName returns the token subject.
func (u TokenUser) UserName() string {
	return u.Subject
}
