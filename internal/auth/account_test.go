// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-auth/signet/internal/auth"
)

func TestNewAccount(t *testing.T) {
	t.Run("creates account with fresh identity", func(t *testing.T) {
		account, err := auth.NewAccount("u@test.io", "tester", "$argon2id$fake")
		require.NoError(t, err)

		assert.NotZero(t, account.ID)
		assert.Equal(t, "u@test.io", account.Email)
		assert.Equal(t, "tester", account.Username)
		assert.Equal(t, "$argon2id$fake", account.PasswordHash)
		assert.False(t, account.CreatedAt.IsZero())
		assert.Equal(t, account.CreatedAt, account.UpdatedAt)
	})

	t.Run("two accounts get distinct IDs", func(t *testing.T) {
		a, err := auth.NewAccount("a@test.io", "usera", "$argon2id$fake")
		require.NoError(t, err)
		b, err := auth.NewAccount("b@test.io", "userb", "$argon2id$fake")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("rejects invalid inputs", func(t *testing.T) {
		tests := []struct {
			name     string
			email    string
			username string
			hash     string
		}{
			{"bad email", "not-an-email", "tester", "$argon2id$fake"},
			{"bad username", "u@test.io", "1leading-digit", "$argon2id$fake"},
			{"empty hash", "u@test.io", "tester", ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := auth.NewAccount(tt.email, tt.username, tt.hash)
				assert.Error(t, err)
			})
		}
	})
}

func TestValidateEmail(t *testing.T) {
	t.Run("valid emails", func(t *testing.T) {
		for _, email := range []string{
			"u@test.io",
			"first.last@example.com",
			"user+tag@sub.example.co.uk",
		} {
			assert.NoError(t, auth.ValidateEmail(email), "email %q should be valid", email)
		}
	})

	t.Run("invalid emails", func(t *testing.T) {
		tests := []struct {
			name  string
			email string
		}{
			{"empty", ""},
			{"no at sign", "plainaddress"},
			{"no domain dot", "user@localhost"},
			{"whitespace", "user name@test.io"},
			{"double at", "user@@test.io"},
			{"over max length", strings.Repeat("a", auth.MaxEmailLength) + "@t.io"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Error(t, auth.ValidateEmail(tt.email))
			})
		}
	})
}

func TestValidateUsername(t *testing.T) {
	t.Run("valid usernames", func(t *testing.T) {
		for _, username := range []string{
			"abc",
			"Tester",
			"user_name-42",
			strings.Repeat("a", auth.MaxUsernameLength),
		} {
			assert.NoError(t, auth.ValidateUsername(username), "username %q should be valid", username)
		}
	})

	t.Run("invalid usernames", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
		}{
			{"empty", ""},
			{"too short", "ab"},
			{"too long", strings.Repeat("a", auth.MaxUsernameLength+1)},
			{"starts with digit", "1user"},
			{"starts with underscore", "_user"},
			{"contains space", "user name"},
			{"contains symbol", "user!"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Error(t, auth.ValidateUsername(tt.username))
			})
		}
	})
}

func TestValidatePassword(t *testing.T) {
	t.Run("valid passwords", func(t *testing.T) {
		for _, password := range []string{
			"passw0rd",
			"A1" + strings.Repeat("x", auth.MinPasswordLength),
			"correct horse battery staple 9",
		} {
			assert.NoError(t, auth.ValidatePassword(password), "password %q should be valid", password)
		}
	})

	t.Run("invalid passwords", func(t *testing.T) {
		tests := []struct {
			name     string
			password string
		}{
			{"too short", "a1b2c3"},
			{"no digit", "passwordonly"},
			{"no letter", "1234567890"},
			{"over max length", "a1" + strings.Repeat("x", auth.MaxPasswordLen)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Error(t, auth.ValidatePassword(tt.password))
			})
		}
	})
}
