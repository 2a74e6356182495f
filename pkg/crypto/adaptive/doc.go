// Package adaptive provides authenticated encryption for small values at rest.
//
// Supported Algorithms:
//
//   - AES-256-GCM: preferred where Go uses hardware AES
//   - ChaCha20-Poly1305: fallback elsewhere
//
// A Sealer prefixes each message with a one-byte cipher tag, so either
// algorithm can open data written by the other platform's preference.
//
// Usage:
//
//	s, err := adaptive.NewSealer(key)
//	sealed, err := s.Seal(plaintext, aad)
//	plaintext, err := s.Open(sealed, aad)
package adaptive
