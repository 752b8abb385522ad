// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/signet-auth/signet/internal/auth"
	"github.com/signet-auth/signet/internal/auth/memory"
	"github.com/signet-auth/signet/internal/httpapi"
	"github.com/signet-auth/signet/internal/observability"
)

// testEnv holds a full service stack listening on loopback ports.
type testEnv struct {
	api     *httpapi.Server
	obs     *observability.Server
	store   *memory.Store
	clock   *time.Time
	baseURL string
	obsURL  string
	client  *http.Client
}

func setupTestEnv() (*testEnv, error) {
	env := &testEnv{
		store:  memory.NewStore(),
		client: &http.Client{Timeout: 5 * time.Second},
	}

	now := time.Now().UTC()
	env.clock = &now

	hasher, err := auth.NewArgon2idHasher(auth.HashParams{Time: 1, Memory: 8 * 1024, Threads: 1})
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewCodec(
		[]byte("integration-secret-0123456789abcdef"),
		30*time.Minute,
		auth.WithClock(func() time.Time { return *env.clock }),
	)
	if err != nil {
		return nil, err
	}

	env.obs = observability.NewServer("127.0.0.1:0", func() bool { return true })

	svc, err := auth.NewService(env.store, hasher, codec,
		auth.WithMetrics(env.obs.Metrics()))
	if err != nil {
		return nil, err
	}

	env.api, err = httpapi.NewServer(svc, httpapi.Config{ListenAddr: "127.0.0.1:0"},
		slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}

	if _, err := env.obs.Start(); err != nil {
		return nil, err
	}
	if _, err := env.api.Start(); err != nil {
		_ = env.obs.Stop(context.Background())
		return nil, err
	}

	env.baseURL = "http://" + env.api.Addr()
	env.obsURL = "http://" + env.obs.Addr()
	return env, nil
}

func (e *testEnv) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.api.Stop(ctx)
	_ = e.obs.Stop(ctx)
}

// postJSON sends a JSON request body and decodes the JSON response.
func (e *testEnv) postJSON(path string, payload any) (int, map[string]any) {
	body, err := json.Marshal(payload)
	Expect(err).NotTo(HaveOccurred())

	resp, err := e.client.Post(e.baseURL+path, "application/json", bytes.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp.StatusCode, decoded
}

func (e *testEnv) getMe(token string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodGet, e.baseURL+"/users/me", nil)
	Expect(err).NotTo(HaveOccurred())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var decoded map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&decoded)).To(Succeed())
	return resp, decoded
}

var _ = Describe("Credential API", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		env.teardown()
	})

	Describe("account lifecycle", func() {
		const (
			email    = "ada@example.com"
			username = "ada"
			password = "correct-horse-9"
		)
		var token string

		It("registers a new account", func() {
			status, body := env.postJSON("/register", map[string]string{
				"email":    email,
				"username": username,
				"password": password,
			})
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body["email"]).To(Equal(email))
			Expect(body["username"]).To(Equal(username))
			Expect(body).NotTo(HaveKey("password"))
			Expect(body).NotTo(HaveKey("password_hash"))
		})

		It("rejects a duplicate email", func() {
			status, body := env.postJSON("/register", map[string]string{
				"email":    "ADA@example.com",
				"username": "ada2",
				"password": password,
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["detail"]).To(Equal("Email already registered"))
		})

		It("rejects a duplicate username", func() {
			status, body := env.postJSON("/register", map[string]string{
				"email":    "other@example.com",
				"username": "Ada",
				"password": password,
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["detail"]).To(Equal("Username already taken"))
		})

		It("rejects a weak password with field details", func() {
			status, body := env.postJSON("/register", map[string]string{
				"email":    "weak@example.com",
				"username": "weak",
				"password": "shortpw",
			})
			Expect(status).To(Equal(http.StatusUnprocessableEntity))
			Expect(body["detail"]).To(HaveKey("password"))
		})

		It("logs in with the right password", func() {
			status, body := env.postJSON("/login", map[string]string{
				"email":    email,
				"password": password,
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["token_type"]).To(Equal("bearer"))
			Expect(body["access_token"]).NotTo(BeEmpty())
			token = body["access_token"].(string)
		})

		It("rejects the wrong password with the same error as an unknown email", func() {
			statusBad, bodyBad := env.postJSON("/login", map[string]string{
				"email":    email,
				"password": "wrong-password-9",
			})
			statusUnknown, bodyUnknown := env.postJSON("/login", map[string]string{
				"email":    "ghost@example.com",
				"password": password,
			})
			Expect(statusBad).To(Equal(http.StatusUnauthorized))
			Expect(statusUnknown).To(Equal(statusBad))
			Expect(bodyUnknown).To(Equal(bodyBad))
		})

		It("serves the profile for a bearer token", func() {
			resp, body := env.getMe(token)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body["email"]).To(Equal(email))
			Expect(body["username"]).To(Equal(username))
		})

		It("rejects a missing token", func() {
			resp, body := env.getMe("")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(Equal("Bearer"))
			Expect(body["detail"]).To(Equal("invalid or expired token"))
		})

		It("rejects a tampered token with the same response", func() {
			resp, body := env.getMe(token + "x")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(body["detail"]).To(Equal("invalid or expired token"))
		})

		It("rejects the token once its lifetime has passed", func() {
			*env.clock = env.clock.Add(31 * time.Minute)
			resp, body := env.getMe(token)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(body["detail"]).To(Equal("invalid or expired token"))
		})
	})

	Describe("observability endpoints", func() {
		It("reports liveness and readiness", func() {
			for _, path := range []string{"/healthz/liveness", "/healthz/readiness"} {
				resp, err := env.client.Get(env.obsURL + path)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK), path)
			}
		})

		It("exposes auth counters on the metrics endpoint", func() {
			resp, err := env.client.Get(env.obsURL + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			metrics := string(raw)

			Expect(metrics).To(ContainSubstring(`signet_registrations_total{status="ok"} 1`))
			Expect(metrics).To(ContainSubstring(`signet_logins_total{status="ok"} 1`))
			Expect(metrics).To(ContainSubstring(fmt.Sprintf(
				`signet_token_verifications_total{result=%q}`, "expired")))
		})
	})
})
