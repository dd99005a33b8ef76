// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Welcome message (GET /)
//   - Placeholder prediction (GET /predict)
//   - Health checks
//   - Prometheus metrics
//
// Unknown paths get gin's default 404 and known paths with the wrong method
// get 405.
package http
