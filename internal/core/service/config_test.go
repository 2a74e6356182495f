package service

import (
	"testing"
	"time"
)

func TestTokenManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TokenManagerConfig)
		wantErr bool
	}{
		{"default", func(*TokenManagerConfig) {}, false},
		{"512 bits", func(c *TokenManagerConfig) { c.EntropyBits = 512 }, false},
		{"argon2id", func(c *TokenManagerConfig) { c.HashAlgorithm = "argon2id" }, false},
		{"below floor", func(c *TokenManagerConfig) { c.EntropyBits = 248 }, true},
		{"above cap", func(c *TokenManagerConfig) { c.EntropyBits = 2048 }, true},
		{"not byte aligned", func(c *TokenManagerConfig) { c.EntropyBits = 260 }, true},
		{"zero version", func(c *TokenManagerConfig) { c.Version = 0 }, true},
		{"bad accept version", func(c *TokenManagerConfig) { c.AcceptVersions = []int{-1} }, true},
		{"negative expiry", func(c *TokenManagerConfig) { c.ExpirationHours = -1 }, true},
		{"unknown algorithm", func(c *TokenManagerConfig) { c.HashAlgorithm = "md5" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTokenManagerConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenManagerConfig_Lifetime(t *testing.T) {
	cfg := DefaultTokenManagerConfig()
	if cfg.Lifetime() != 0 {
		t.Errorf("default Lifetime() = %v, want 0", cfg.Lifetime())
	}
	cfg.ExpirationHours = 12
	if cfg.Lifetime() != 12*time.Hour {
		t.Errorf("Lifetime() = %v, want 12h", cfg.Lifetime())
	}
}
