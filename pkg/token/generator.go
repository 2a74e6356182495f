package token

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"io"
)

// DefaultEntropyBits is the default and minimum entropy of a token value.
const DefaultEntropyBits = 256

// Encoding is the value alphabet: RFC 4648 base32, unpadded.
// Every character is in the QR alphanumeric set.
var Encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrEntropyBits is returned for bit sizes that are not a positive multiple of 8.
var ErrEntropyBits = errors.New("token: entropy bits must be a positive multiple of 8")

// Generator draws token values from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Value returns a base32 encoded value carrying bits of entropy.
func (g *Generator) Value(bits int) (string, error) {
	if bits <= 0 || bits%8 != 0 {
		return "", ErrEntropyBits
	}
	buf := make([]byte, bits/8)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("token: read random: %w", err)
	}
	return Encoding.EncodeToString(buf), nil
}

// GenerateBytes generates random bytes from crypto/rand.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}

// EncodedLength returns the unpadded base32 length for bits of entropy.
func EncodedLength(bits int) int {
	return Encoding.EncodedLen(bits / 8)
}
