// Package main is a minimal HTTP health check binary for use in distroless
// containers. It exits 0 when the /health endpoint returns HTTP 200, and 1
// otherwise. Compile with CGO_ENABLED=0 for a fully static binary.
//
// The target defaults to the service's default port and can be overridden
// with STOREFRONT_HEALTHCHECK_URL or STOREFRONT_PORT.
package main

import (
	"net/http"
	"os"
	"time"
)

func healthURL() string {
	if u := os.Getenv("STOREFRONT_HEALTHCHECK_URL"); u != "" {
		return u
	}
	port := os.Getenv("STOREFRONT_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port + "/health"
}

func main() {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(healthURL())
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
