// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package httpapi

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/signet-auth/signet/internal/auth"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Detail any `json:"detail"`
}

// accountBody is the public view of an account. The password hash never
// leaves the service.
type accountBody struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccountBody(account *auth.Account) accountBody {
	return accountBody{
		ID:        account.ID.String(),
		Email:     account.Email,
		Username:  account.Username,
		CreatedAt: account.CreatedAt,
	}
}

// tokenBody is the successful login response.
type tokenBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "signet",
		"endpoints": fiber.Map{
			"register": "POST /register",
			"login":    "POST /login",
			"me":       "GET /users/me",
			"health":   "GET /health",
		},
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "malformed request body"})
	}

	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}

	account, err := s.svc.Register(c.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		return s.serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newAccountBody(account))
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "malformed request body"})
	}

	if err := req.Validate(); err != nil {
		return validationError(c, err)
	}

	token, err := s.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return s.serviceError(c, err)
	}

	return c.JSON(tokenBody{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	account, ok := c.Locals(localsAccount).(*auth.Account)
	if !ok {
		// requireToken always sets the account; reaching here is a wiring bug.
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Detail: "internal server error"})
	}
	return c.JSON(newAccountBody(account))
}

// requireToken extracts and verifies the bearer token, storing the verified
// claims and resolved account in the request locals. Every failure mode
// produces the same 401 so a token probe learns nothing.
func (s *Server) requireToken(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return unauthorized(c, "invalid or expired token")
	}

	claims, account, err := s.svc.VerifyToken(c.Context(), tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return unauthorized(c, "invalid or expired token")
		}
		s.logger.Error("token verification failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Detail: "internal server error"})
	}

	c.Locals(localsClaims, claims)
	c.Locals(localsAccount, account)
	return c.Next()
}

// serviceError maps auth service errors onto HTTP responses. Sentinels drive
// the mapping; anything unrecognized is logged and returned as a 500.
func (s *Server) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "Email already registered"})
	case errors.Is(err, auth.ErrDuplicateUsername):
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Detail: "Username already taken"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return unauthorized(c, "invalid email or password")
	case errors.Is(err, auth.ErrUnauthenticated):
		return unauthorized(c, "invalid or expired token")
	default:
		s.logger.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Detail: "internal server error"})
	}
}

// validationError renders ozzo validation failures as a 422 with per-field
// messages.
func validationError(c *fiber.Ctx, err error) error {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Detail: fieldErrs})
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Detail: err.Error()})
}

func unauthorized(c *fiber.Ctx, detail string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Detail: detail})
}
