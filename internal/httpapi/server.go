// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

// Package httpapi exposes the authentication service over HTTP. It is thin
// plumbing: request parsing, validation, and error-to-status mapping live
// here, everything else is delegated to the auth service.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gobwas/glob"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/samber/oops"

	"github.com/signet-auth/signet/internal/auth"
)

// Locals keys set by the bearer-token middleware.
const (
	localsClaims  = "signet_claims"
	localsAccount = "signet_account"
)

// Config holds the API server settings.
type Config struct {
	// ListenAddr is the address in "host:port" format.
	ListenAddr string

	// CORSOrigins are glob patterns for allowed origins
	// (e.g. "https://*.example.com"). Empty means no CORS headers.
	CORSOrigins []string
}

// Server serves the authentication API.
type Server struct {
	app      *fiber.App
	svc      *auth.Service
	logger   *slog.Logger
	addr     string
	listener net.Listener
}

// NewServer builds the API server around svc.
func NewServer(svc *auth.Service, cfg Config, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, oops.Code("API_INVALID_DEPENDENCY").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		svc:    svc,
		logger: logger,
		addr:   cfg.ListenAddr,
	}

	app := fiber.New(fiber.Config{
		AppName:               "signet",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          s.fiberErrorHandler,
	})

	if len(cfg.CORSOrigins) > 0 {
		matchers := make([]glob.Glob, 0, len(cfg.CORSOrigins))
		for _, pattern := range cfg.CORSOrigins {
			g, err := glob.Compile(pattern)
			if err != nil {
				return nil, oops.Code("API_INVALID_CORS_PATTERN").
					With("pattern", pattern).
					Wrap(err)
			}
			matchers = append(matchers, g)
		}
		app.Use(cors.New(cors.Config{
			AllowOriginsFunc: func(origin string) bool {
				for _, g := range matchers {
					if g.Match(origin) {
						return true
					}
				}
				return false
			},
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))
	}

	app.Get("/", s.handleIndex)
	app.Get("/health", s.handleHealth)
	app.Post("/register", s.handleRegister)
	app.Post("/login", s.handleLogin)
	app.Get("/users/me", s.requireToken, s.handleMe)

	s.app = app
	return s, nil
}

// App exposes the underlying fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins serving the API. It returns an error channel that receives any
// error from the HTTP server after startup; the channel is closed on graceful
// shutdown.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := s.app.Listener(listener); serveErr != nil {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if s.app == nil {
		return nil
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return oops.With("operation", "shutdown_api_server").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// fiberErrorHandler converts errors fiber raises itself (unmatched routes,
// oversized bodies) into the API's JSON error shape.
func (s *Server) fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	return c.Status(code).JSON(errorBody{Detail: message})
}
