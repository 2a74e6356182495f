// Package httpserver serves the token API over HTTP or HTTPS.
//
// Routes:
//
//   - Owner endpoints: /v1/users/{user_id}/tokens, .../tokens/{id}, .../tokens/revoke
//   - Scan endpoints: /v1/tokens/validate, /v1/tokens/resolve, /v1/tokens/revoke
//   - Operational: /health, /ready, /metrics
//
// Middleware order is Recover, RequestID, AccessLog. Authentication of the
// caller is left to the fronting gateway.
package httpserver
