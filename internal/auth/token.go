// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Token configuration.
const (
	// MinSigningKeyLen is the minimum signing secret length in bytes.
	// HS256 keys shorter than the hash output are brute-forceable offline.
	MinSigningKeyLen = 32

	// DefaultTokenTTL is the token lifetime when none is configured.
	DefaultTokenTTL = 30 * time.Minute

	// MaxTokenLen caps the token string accepted for decoding.
	MaxTokenLen = 8192
)

// Token decode failures. The HTTP boundary collapses all three into one
// response; internal logging keeps the distinction.
var (
	// ErrTokenMalformed is returned when the token has the wrong structure
	// or encoding.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignatureInvalid is returned when the payload was tampered
	// with or signed under a different key.
	ErrTokenSignatureInvalid = errors.New("token signature invalid")

	// ErrTokenExpired is returned when the signature checks out but the
	// embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the claim set embedded in every issued token. Subject carries
// the account email; Username is auxiliary display data.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Codec encodes claim sets into signed, expiring token strings and decodes
// them back. The signing secret and TTL are fixed at construction; rotation
// means a redeploy.
type Codec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = clock
	}
}

// NewCodec creates a Codec signing with key and issuing tokens valid for ttl.
func NewCodec(key []byte, ttl time.Duration, opts ...CodecOption) (*Codec, error) {
	if len(key) < MinSigningKeyLen {
		return nil, oops.Code("TOKEN_KEY_TOO_SHORT").
			With("min_bytes", MinSigningKeyLen).
			Errorf("signing key must be at least %d bytes", MinSigningKeyLen)
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_INVALID_TTL").Errorf("token ttl must be positive")
	}

	c := &Codec{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode mints a signed HS256 token for the subject. Issued-at is the
// current clock reading and expiry is issued-at plus the configured TTL;
// every call gets a fresh token ID, so two logins in the same instant still
// produce distinct tokens.
func (c *Codec) Encode(subject, username string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Username: username,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Decode validates a token string and returns its claims. Signature and
// expiry are both checked; failures map onto ErrTokenMalformed,
// ErrTokenSignatureInvalid, or ErrTokenExpired.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" || len(tokenString) > MaxTokenLen {
		return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrTokenMalformed)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oops.Code("TOKEN_BAD_METHOD").Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, oops.Code("TOKEN_SIGNATURE_INVALID").Wrap(ErrTokenSignatureInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		default:
			return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrTokenMalformed)
		}
	}

	if !token.Valid || claims.Subject == "" {
		return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrTokenMalformed)
	}

	return claims, nil
}
