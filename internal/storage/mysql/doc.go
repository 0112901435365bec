// Package mysql persists the agent's action journal. A JSON-lines file
// backed repository serves local runs; the MySQL repository applies the
// embedded schema migrations on start.
package mysql
