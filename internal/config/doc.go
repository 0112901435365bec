// Package config loads the agent configuration from JSON or YAML files,
// applies defaults and environment overrides, and validates the NEAR agent
// credentials before any connection is attempted.
package config
