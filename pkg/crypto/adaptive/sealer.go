package adaptive

import "fmt"

// Envelope tags. The first byte of a sealed message names its cipher so
// data written on one platform opens on another.
const (
	tagAESGCM   byte = 0x01
	tagChaCha20 byte = 0x02
)

var cipherTags = map[CipherType]byte{
	CipherAESGCM:   tagAESGCM,
	CipherChaCha20: tagChaCha20,
}

// Sealer encrypts small values at rest under one key.
type Sealer struct {
	preferred Cipher
	byTag     map[byte]Cipher
}

// NewSealer creates a Sealer that writes with the preferred cipher.
func NewSealer(key []byte) (*Sealer, error) {
	return NewSealerWithType(key, Preferred())
}

// NewSealerWithType creates a Sealer that writes with cipherType.
func NewSealerWithType(key []byte, cipherType CipherType) (*Sealer, error) {
	s := &Sealer{byTag: make(map[byte]Cipher, len(cipherTags))}
	for typ, tag := range cipherTags {
		c, err := NewWithType(key, typ)
		if err != nil {
			return nil, err
		}
		s.byTag[tag] = c
	}
	tag, ok := cipherTags[cipherType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCipher, cipherType)
	}
	s.preferred = s.byTag[tag]
	return s, nil
}

// Seal returns tag || nonce || ciphertext || mac.
func (s *Sealer) Seal(plaintext, additionalData []byte) ([]byte, error) {
	ct, err := s.preferred.Encrypt(plaintext, additionalData)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(ct))
	out = append(out, cipherTags[s.preferred.Type()])
	return append(out, ct...), nil
}

// Open authenticates and decrypts a sealed message.
func (s *Sealer) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < 1 {
		return nil, ErrCiphertextShort
	}
	c, ok := s.byTag[sealed[0]]
	if !ok {
		return nil, fmt.Errorf("%w: tag 0x%02x", ErrUnknownCipher, sealed[0])
	}
	return c.Decrypt(sealed[1:], additionalData)
}
