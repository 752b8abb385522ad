// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Signet Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/signet-auth/signet/internal/config"
)

// EndpointStatus holds the probe result for one server endpoint.
type EndpointStatus struct {
	Endpoint string `json:"endpoint"`
	URL      string `json:"url"`
	Healthy  bool   `json:"healthy"`
	Error    string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running Signet instance",
		Long:  `Probe the health endpoints of the API and observability servers.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	// Register flags
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	statuses := []EndpointStatus{
		probeEndpoint("api", appCfg.ListenAddr, "/health"),
	}
	if appCfg.MetricsAddr != "" {
		statuses = append(statuses, probeEndpoint("observability", appCfg.MetricsAddr, "/healthz/readiness"))
	}

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(statuses)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(statuses)
	}

	cmd.Println(output)
	return nil
}

// probeEndpoint issues a GET against addr+path and reports whether it
// answered 200.
func probeEndpoint(name, addr, path string) EndpointStatus {
	url := "http://" + normalizeAddr(addr) + path
	status := EndpointStatus{
		Endpoint: name,
		URL:      url,
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return status
	}

	status.Healthy = true
	return status
}

// normalizeAddr turns a bind address like ":8080" into a dialable host:port.
func normalizeAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// formatStatusTable formats the statuses as a human-readable table.
func formatStatusTable(statuses []EndpointStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	// Header
	_, _ = fmt.Fprintln(w, "ENDPOINT\tSTATUS\tURL\tDETAIL")
	_, _ = fmt.Fprintln(w, "--------\t------\t---\t------")

	for _, status := range statuses {
		if status.Healthy {
			_, _ = fmt.Fprintf(w, "%s\thealthy\t%s\t-\n", status.Endpoint, status.URL)
		} else {
			_, _ = fmt.Fprintf(w, "%s\tdown\t%s\t%s\n", status.Endpoint, status.URL, status.Error)
		}
	}

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the statuses as JSON.
func formatStatusJSON(statuses []EndpointStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
