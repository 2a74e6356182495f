package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the only key size accepted: both ciphers run with 256-bit keys.
const KeySize = 32

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-256-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"
)

// Errors returned by ciphers and sealers.
var (
	ErrKeySize              = errors.New("adaptive: key must be 32 bytes")
	ErrUnknownCipher        = errors.New("adaptive: unknown cipher type")
	ErrCiphertextShort      = errors.New("adaptive: ciphertext too short")
	ErrAuthenticationFailed = errors.New("adaptive: message authentication failed")
)

// Cipher provides authenticated encryption.
type Cipher interface {
	// Type returns the cipher type.
	Type() CipherType

	// Encrypt returns nonce || ciphertext || tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt reverses Encrypt. Tampering yields ErrAuthenticationFailed.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)
}

// New creates the preferred cipher for this platform.
func New(key []byte) (Cipher, error) {
	return NewWithType(key, Preferred())
}

// Preferred returns AES-GCM where Go uses hardware AES, ChaCha20 otherwise.
func Preferred() CipherType {
	switch runtime.GOARCH {
	case "amd64", "arm64", "s390x", "ppc64le":
		return CipherAESGCM
	default:
		return CipherChaCha20
	}
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch cipherType {
	case CipherAESGCM:
		var block cipher.Block
		if block, err = aes.NewCipher(key); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCipher, cipherType)
	}
	if err != nil {
		return nil, err
	}
	return &aeadCipher{typ: cipherType, aead: aead}, nil
}

type aeadCipher struct {
	typ  CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType {
	return c.typ
}

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(ciphertext) < ns+c.aead.Overhead() {
		return nil, ErrCiphertextShort
	}
	plaintext, err := c.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], additionalData)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
