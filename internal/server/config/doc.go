// Package config defines the qrtoken-server configuration.
//
//   - spec.go: ServerConfig and its sections
//   - default.go: defaults
//   - verify.go: validation before start-up
//   - sanitize.go: a copy safe to log
//
// Values are layered by internal/infra/confloader.
package config
