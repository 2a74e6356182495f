package service

import (
	"fmt"
	"time"

	"github.com/yndnr/qrtoken-go/pkg/token"
)

// TokenManagerConfig configures token issuance and validation.
type TokenManagerConfig struct {
	// EntropyBits is the random payload size. Minimum and default 256.
	EntropyBits int

	// Version is the wire version written on new tokens.
	Version int

	// AcceptVersions lists additional wire versions still accepted on scan.
	AcceptVersions []int

	// ExpirationHours is the token lifetime. 0 means tokens never expire
	// by age and stay valid until revoked.
	ExpirationHours int

	// HashAlgorithm is the at-rest digest for new records.
	HashAlgorithm string
}

// DefaultTokenManagerConfig returns 256-bit, version 1, non-expiring, sha256.
func DefaultTokenManagerConfig() TokenManagerConfig {
	return TokenManagerConfig{
		EntropyBits:   token.DefaultEntropyBits,
		Version:       token.CurrentVersion,
		HashAlgorithm: token.AlgorithmSHA256,
	}
}

// Validate rejects configurations the manager cannot honour.
func (c TokenManagerConfig) Validate() error {
	if c.EntropyBits < token.DefaultEntropyBits {
		return fmt.Errorf("entropy_bits must be at least %d, got %d", token.DefaultEntropyBits, c.EntropyBits)
	}
	if c.EntropyBits > token.MaxEntropyBits {
		return fmt.Errorf("entropy_bits must be at most %d, got %d", token.MaxEntropyBits, c.EntropyBits)
	}
	if c.EntropyBits%8 != 0 {
		return fmt.Errorf("entropy_bits must be a multiple of 8, got %d", c.EntropyBits)
	}
	if c.Version <= 0 {
		return fmt.Errorf("version must be positive, got %d", c.Version)
	}
	for _, v := range c.AcceptVersions {
		if v <= 0 {
			return fmt.Errorf("accept_versions entries must be positive, got %d", v)
		}
	}
	if c.ExpirationHours < 0 {
		return fmt.Errorf("expiration_hours must not be negative, got %d", c.ExpirationHours)
	}
	if !token.KnownAlgorithm(c.HashAlgorithm) {
		return fmt.Errorf("unknown hash_algorithm %q", c.HashAlgorithm)
	}
	return nil
}

// Lifetime returns the configured token lifetime, or 0 for non-expiring.
func (c TokenManagerConfig) Lifetime() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func (c TokenManagerConfig) versions() []int {
	return append([]int{c.Version}, c.AcceptVersions...)
}
