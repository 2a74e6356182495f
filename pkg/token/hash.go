package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Hash algorithms recorded alongside every digest.
const (
	AlgorithmSHA256   = "sha256"
	AlgorithmArgon2id = "argon2id"
)

// SaltLength is the per-hash salt size in bytes (128 bits).
const SaltLength = 16

// argon2id parameters. Changing them requires a new algorithm name.
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
)

// Hashed is a salted digest of a token value.
type Hashed struct {
	Hash      string
	Salt      string
	Algorithm string
}

// Hasher computes and verifies salted token digests.
type Hasher struct {
	algorithm string
}

// NewHasher returns a Hasher that writes digests with algorithm.
// Verify accepts every known algorithm regardless.
func NewHasher(algorithm string) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmSHA256
	}
	if !KnownAlgorithm(algorithm) {
		return nil, fmt.Errorf("token: unknown hash algorithm %q", algorithm)
	}
	return &Hasher{algorithm: algorithm}, nil
}

// KnownAlgorithm reports whether Verify can check digests of algorithm.
func KnownAlgorithm(algorithm string) bool {
	return algorithm == AlgorithmSHA256 || algorithm == AlgorithmArgon2id
}

// Algorithm returns the algorithm used by Hash.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash digests value with a fresh random salt.
func (h *Hasher) Hash(value string) (Hashed, error) {
	salt, err := GenerateBytes(SaltLength)
	if err != nil {
		return Hashed{}, fmt.Errorf("token: read salt: %w", err)
	}
	return Hashed{
		Hash:      hex.EncodeToString(digest(h.algorithm, value, salt)),
		Salt:      hex.EncodeToString(salt),
		Algorithm: h.algorithm,
	}, nil
}

// Verify recomputes the digest with hashed's salt and algorithm.
//
// Uses constant-time comparison to prevent timing attacks.
func (h *Hasher) Verify(value string, hashed Hashed) bool {
	if !KnownAlgorithm(hashed.Algorithm) {
		return false
	}
	salt, err := hex.DecodeString(hashed.Salt)
	if err != nil || len(salt) < SaltLength {
		return false
	}
	expected, err := hex.DecodeString(hashed.Hash)
	if err != nil {
		return false
	}
	actual := digest(hashed.Algorithm, value, salt)
	return subtle.ConstantTimeCompare(actual, expected) == 1
}

func digest(algorithm, value string, salt []byte) []byte {
	switch algorithm {
	case AlgorithmArgon2id:
		return argon2.IDKey([]byte(value), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	default:
		h := sha256.New()
		h.Write([]byte(value))
		h.Write(salt)
		return h.Sum(nil)
	}
}

// Fingerprint returns the hex HMAC-SHA256 of value under key.
//
// Unlike Hash it is deterministic, so stores can index by it.
func Fingerprint(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
