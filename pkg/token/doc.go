// Package token provides token generation, wire encoding and hashing utilities.
//
// Wire format (QR text):
//
//	<version>:<value>:<checksum>
//
//   - version: canonical positive decimal, currently 1
//   - value: unpadded RFC 4648 base32 of >= 256 random bits (52 chars at 256)
//   - checksum: upper hex SHA-256 over "<version>:<value>" (64 chars)
//
// Every character is in the QR alphanumeric set, so the text encodes in
// alphanumeric mode. A 256-bit token is 119 characters.
//
// Storage:
//
//   - Hasher: salted digest (sha256 or argon2id) with a 128-bit salt,
//     verified in constant time
//   - Fingerprint: keyed HMAC used as the deterministic lookup index
//
// Raw values are never stored, only digests.
package token
