package server

import (
	"context"
	"net/http"
)

// Reports nil while the daemon is healthy
type HealthCheck func() (err error)

// Handlers mounted on the metric listener
type Routes struct {
	Metrics http.Handler
	Health  HealthCheck // optional, health path answers 404 without it
}

// Redirects net/http internal errors into the context logger
type errorSink struct {
	ctx context.Context
}
