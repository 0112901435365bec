// Package api exposes the agent over a small JSON HTTP API together with
// health and Prometheus endpoints.
package api
