package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthURL(t *testing.T) {
	t.Setenv("STOREFRONT_HEALTHCHECK_URL", "")
	t.Setenv("STOREFRONT_PORT", "")
	assert.Equal(t, "http://localhost:8080/health", healthURL())

	t.Setenv("STOREFRONT_PORT", "9000")
	assert.Equal(t, "http://localhost:9000/health", healthURL())

	t.Setenv("STOREFRONT_HEALTHCHECK_URL", "http://127.0.0.1:7000/health")
	assert.Equal(t, "http://127.0.0.1:7000/health", healthURL())
}
