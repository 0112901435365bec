// Package auth guards the HTTP API with static bearer tokens. Each token maps
// to a named subject carrying a set of permissions; the middleware checks the
// permissions required by the HTTP method and writes an audit record.
package auth
