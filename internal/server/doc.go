// Package server exposes the review service over HTTP.
//
// It provides a gorilla/mux router with two endpoints: POST
// /api/v1/code-review runs a full review of a GitLab merge request, and
// GET /health reports liveness. Domain errors from the review pipeline
// are mapped to HTTP status codes in one place, so callers can
// distinguish a bad request from an upstream GitLab failure.
package server
