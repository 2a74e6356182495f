// Package service implements the token lifecycle.
//
// TokenManager issues, validates, resolves and revokes QR tokens on top of
// a TokenStore. It holds no mutable state of its own and is safe for
// concurrent use; the store is the only shared state.
//
// Validation never distinguishes unknown, revoked and expired tokens:
// all three report domain.ErrorExpiredToken. Only infrastructure failures
// are returned as errors.
package service
