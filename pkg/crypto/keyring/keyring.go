// Package keyring derives purpose-bound subkeys from a single master key.
package keyring

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MinMasterKeyLength is the shortest accepted master key in bytes.
const MinMasterKeyLength = 32

// SubkeyLength is the size of every derived key.
const SubkeyLength = 32

// HKDF info labels. Changing one invalidates every stored value keyed by it.
const (
	infoLookup = "qrtoken/v1/lookup"
	infoLabel  = "qrtoken/v1/label"
)

// ErrMasterKeyShort is returned when the master key has too little material.
var ErrMasterKeyShort = errors.New("keyring: master key must be at least 32 bytes")

// Keyring holds the subkeys derived from a master key.
type Keyring struct {
	lookup []byte
	label  []byte
}

// New derives a Keyring from raw master key bytes.
func New(master []byte) (*Keyring, error) {
	if len(master) < MinMasterKeyLength {
		return nil, ErrMasterKeyShort
	}
	lookup, err := derive(master, infoLookup)
	if err != nil {
		return nil, err
	}
	label, err := derive(master, infoLabel)
	if err != nil {
		return nil, err
	}
	return &Keyring{lookup: lookup, label: label}, nil
}

// Parse decodes a configured master key. Accepted forms are "hex:<hex>",
// "base64:<std base64>" and a raw string of at least 32 bytes.
func Parse(s string) ([]byte, error) {
	switch {
	case strings.HasPrefix(s, "hex:"):
		b, err := hex.DecodeString(strings.TrimPrefix(s, "hex:"))
		if err != nil {
			return nil, fmt.Errorf("keyring: decode hex master key: %w", err)
		}
		return b, nil
	case strings.HasPrefix(s, "base64:"):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
		if err != nil {
			return nil, fmt.Errorf("keyring: decode base64 master key: %w", err)
		}
		return b, nil
	default:
		return []byte(s), nil
	}
}

// LookupKey is the HMAC key for token lookup fingerprints.
func (k *Keyring) LookupKey() []byte {
	return k.lookup
}

// LabelKey is the AEAD key for token labels at rest.
func (k *Keyring) LabelKey() []byte {
	return k.label
}

func derive(master []byte, info string) ([]byte, error) {
	out := make([]byte, SubkeyLength)
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("keyring: derive %s: %w", info, err)
	}
	return out, nil
}
