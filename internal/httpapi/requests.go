// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/signet-auth/signet/internal/auth"
)

// RegisterRequest is the payload for POST /register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate applies the domain input contracts to the payload.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email, validation.By(domainRule(auth.ValidateEmail))),
		validation.Field(&r.Username, validation.Required, validation.By(domainRule(auth.ValidateUsername))),
		validation.Field(&r.Password, validation.Required, validation.By(domainRule(auth.ValidatePassword))),
	)
}

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the payload shape. Deliberately minimal: anything beyond
// presence is the service's call, and login failures never explain themselves.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// domainRule adapts a domain validator to an ozzo rule function.
func domainRule(check func(string) error) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		return check(s)
	}
}
