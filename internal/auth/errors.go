// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package auth

import "errors"

// Sentinel outcomes of the authentication core. Callers branch on these with
// errors.Is; the oops wrappers layered on top carry codes and context for
// logging only.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateUsername is returned when registering a username that is taken.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials is returned for both unknown identifier and wrong
	// password. The two cases are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned for every token verification failure:
	// malformed, tampered, expired, or subject no longer present.
	ErrUnauthenticated = errors.New("invalid or expired token")
)
