// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// MetricsRecorder receives authentication outcomes for telemetry. The
// statuses passed here keep distinctions (unknown email vs. wrong password)
// that are never surfaced to callers.
type MetricsRecorder interface {
	RecordRegistration(status string)
	RecordLogin(status string)
	RecordVerification(result string)
}

// Telemetry status labels.
const (
	StatusOK             = "ok"
	StatusDuplicateEmail = "duplicate_email"
	StatusDuplicateUser  = "duplicate_username"
	StatusUnknownEmail   = "unknown_email"
	StatusBadPassword    = "bad_password"
	StatusError          = "error"
	ResultTokenMalformed = "malformed"
	ResultTokenTampered  = "signature_invalid"
	ResultTokenExpired   = "expired"
	ResultSubjectGone    = "subject_gone"
)

// noopMetrics is used when no recorder is configured.
type noopMetrics struct{}

func (noopMetrics) RecordRegistration(string) {}
func (noopMetrics) RecordLogin(string)        {}
func (noopMetrics) RecordVerification(string) {}

// dummyPasswordHash is verified when a login names an unknown email, so the
// response time matches the wrong-password path. This is NOT a real
// credential - it is a fake hash that will never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides registration, login, and token verification.
type Service struct {
	store   AccountStore
	hasher  PasswordHasher
	codec   *Codec
	logger  *slog.Logger
	metrics MetricsRecorder
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the telemetry recorder.
func WithMetrics(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service.
func NewService(store AccountStore, hasher PasswordHasher, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("account store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token codec is required")
	}

	s := &Service{
		store:   store,
		hasher:  hasher,
		codec:   codec,
		logger:  slog.Default(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a new account. Email and username are checked for
// uniqueness before hashing; a racing insert that slips past the pre-checks
// surfaces as the same duplicate outcome from the store.
func (s *Service) Register(ctx context.Context, email, username, password string) (*Account, error) {
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		s.metrics.RecordRegistration(StatusDuplicateEmail)
		return nil, oops.Code("AUTH_DUPLICATE_EMAIL").With("email", email).Wrap(ErrDuplicateEmail)
	} else if !errors.Is(err, ErrNotFound) {
		s.metrics.RecordRegistration(StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "check email").Wrap(err)
	}

	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		s.metrics.RecordRegistration(StatusDuplicateUser)
		return nil, oops.Code("AUTH_DUPLICATE_USERNAME").With("username", username).Wrap(ErrDuplicateUsername)
	} else if !errors.Is(err, ErrNotFound) {
		s.metrics.RecordRegistration(StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "check username").Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.RecordRegistration(StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	account, err := NewAccount(email, username, hash)
	if err != nil {
		s.metrics.RecordRegistration(StatusError)
		return nil, err
	}

	if err := s.store.Create(ctx, account); err != nil {
		// A concurrent registration can win between the pre-check and the
		// insert; the store's duplicate verdict is authoritative.
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			s.metrics.RecordRegistration(StatusDuplicateEmail)
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").With("email", email).Wrap(ErrDuplicateEmail)
		case errors.Is(err, ErrDuplicateUsername):
			s.metrics.RecordRegistration(StatusDuplicateUser)
			return nil, oops.Code("AUTH_DUPLICATE_USERNAME").With("username", username).Wrap(ErrDuplicateUsername)
		default:
			s.metrics.RecordRegistration(StatusError)
			return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "persist account").Wrap(err)
		}
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"username", username)
	s.metrics.RecordRegistration(StatusOK)

	return account, nil
}

// Login authenticates an email/password pair and mints a bearer token.
// Unknown email and wrong password both return ErrInvalidCredentials; a
// dummy hash is verified on the unknown-email path so the two cases cost
// the same amount of time.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	account, lookupErr := s.store.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	accountExists := false

	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
		accountExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// fall through to dummy verification
	default:
		s.metrics.RecordLogin(StatusError)
		return "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account by email").Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && accountExists {
		// A stored hash we cannot parse is an operational problem, but the
		// caller still only learns that the credentials did not work.
		s.logger.ErrorContext(ctx, "stored hash rejected by verifier",
			"account_id", account.ID.String(),
			"error", verifyErr)
	}

	if !accountExists {
		s.logger.InfoContext(ctx, "login rejected", "reason", "unknown email")
		s.metrics.RecordLogin(StatusUnknownEmail)
		return "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}
	if verifyErr != nil || !valid {
		s.logger.InfoContext(ctx, "login rejected",
			"reason", "password mismatch",
			"account_id", account.ID.String())
		s.metrics.RecordLogin(StatusBadPassword)
		return "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, err := s.codec.Encode(account.Email, account.Username)
	if err != nil {
		s.metrics.RecordLogin(StatusError)
		return "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "mint token").Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded", "account_id", account.ID.String())
	s.metrics.RecordLogin(StatusOK)

	return token, nil
}

// VerifyToken validates a bearer token and re-resolves its subject against
// the store. Every failure - malformed, tampered, expired, or a subject
// that no longer exists - collapses into ErrUnauthenticated; the precise
// cause is kept for logging and metrics only.
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (*Claims, *Account, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		result := ResultTokenMalformed
		switch {
		case errors.Is(err, ErrTokenExpired):
			result = ResultTokenExpired
		case errors.Is(err, ErrTokenSignatureInvalid):
			result = ResultTokenTampered
		}
		s.logger.InfoContext(ctx, "token rejected", "reason", result)
		s.metrics.RecordVerification(result)
		return nil, nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
	}

	// The token is cryptographically valid, but identity is re-resolved
	// rather than trusted from the payload: tokens must not outlive their
	// accounts.
	account, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.InfoContext(ctx, "token rejected", "reason", "subject no longer exists")
			s.metrics.RecordVerification(ResultSubjectGone)
			return nil, nil, oops.Code("AUTH_UNAUTHENTICATED").Wrap(ErrUnauthenticated)
		}
		s.metrics.RecordVerification(StatusError)
		return nil, nil, oops.Code("AUTH_VERIFY_FAILED").With("operation", "resolve subject").Wrap(err)
	}

	s.metrics.RecordVerification(StatusOK)
	return claims, account, nil
}
