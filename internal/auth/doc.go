// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

// Package auth implements the Signet authentication core.
//
// # Domain Types
//
// Account is the stored credential record. Create one through NewAccount,
// which validates the identifier and attaches timestamps; direct struct
// initialization bypasses validation and may create invalid state.
//
// # Components
//
//   - Argon2idHasher - salted, adaptive password hashing and constant-time
//     verification (PasswordHasher interface)
//   - Codec - signed, expiring bearer tokens: claims in, token string out,
//     and back again
//   - Service - registration, login, and token verification, composed from
//     the two above plus an AccountStore
//
// Everything is constructed once at startup and read-only afterwards; all
// methods are safe for concurrent use.
package auth
