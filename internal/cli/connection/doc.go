// Package connection is the HTTP client qrtoken-cli uses to reach a
// qrtoken-server. It unwraps the server's response envelope and turns
// error envelopes into *APIError values.
package connection
