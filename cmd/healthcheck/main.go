// Command healthcheck probes the relnotesgen API health endpoint and exits
// non-zero when it is unreachable. Used as the container HEALTHCHECK.
package main

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const (
	defaultAddr = "127.0.0.1:8080"
	healthPath  = "/api/v1/health"
	timeout     = 2 * time.Second
)

func main() {
	os.Exit(check(os.Getenv("RELNOTES_LISTEN_ADDR")))
}

func check(rawAddr string) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(rawAddr), nil)
	if err != nil {
		return 1
	}

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func healthURL(rawAddr string) string {
	u := url.URL{Scheme: "http", Host: normalizeAddr(rawAddr), Path: healthPath}
	return u.String()
}

// normalizeAddr points the probe at loopback when the server binds all
// interfaces.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
