// Package tlsroots builds the TLS configuration for the API listener and
// for qrtoken-cli.
//
// Pool loads trust anchors: the system roots plus PEM files for clients,
// or only the configured CA for client certificate checks on the server.
// Watcher serves the current certificate and reloads it when the files are
// replaced, so certificate rotation does not need a restart.
package tlsroots
