package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// Wire layout: <version>:<value>:<checksum>
const (
	// Delimiter separates the wire fields. It is outside both field alphabets.
	Delimiter = ":"

	// ChecksumLength is the width of the upper hex SHA-256 checksum.
	ChecksumLength = 64

	// MaxEncodedLength bounds the QR text accepted by Decode.
	MaxEncodedLength = 512

	// MaxEntropyBits is the largest entropy a Codec accepts.
	MaxEntropyBits = 1024

	// CurrentVersion is the wire version written by new tokens.
	CurrentVersion = 1
)

// Decode failures. Decode returns exactly one of these.
var (
	ErrInvalidFormat      = errors.New("token: invalid format")
	ErrUnsupportedVersion = errors.New("token: unsupported version")
	ErrMalformedData      = errors.New("token: malformed data")
	ErrInvalidChecksum    = errors.New("token: invalid checksum")
)

// Encoded is the parsed form of a QR text.
type Encoded struct {
	Version  int
	Value    string
	Checksum string
}

// Codec renders and parses the QR wire format.
type Codec struct {
	versions map[int]struct{}
	minBits  int
	maxBits  int
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithVersions replaces the set of accepted wire versions.
func WithVersions(versions ...int) CodecOption {
	return func(c *Codec) {
		c.versions = make(map[int]struct{}, len(versions))
		for _, v := range versions {
			if v > 0 {
				c.versions[v] = struct{}{}
			}
		}
	}
}

// WithEntropyBounds sets the accepted value entropy range in bits.
func WithEntropyBounds(minBits, maxBits int) CodecOption {
	return func(c *Codec) {
		c.minBits = minBits
		c.maxBits = maxBits
	}
}

// NewCodec creates a Codec accepting CurrentVersion and 256..512 bit values.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		versions: map[int]struct{}{CurrentVersion: {}},
		minBits:  DefaultEntropyBits,
		maxBits:  2 * DefaultEntropyBits,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.minBits < DefaultEntropyBits {
		c.minBits = DefaultEntropyBits
	}
	if c.maxBits > MaxEntropyBits {
		c.maxBits = MaxEntropyBits
	}
	if c.maxBits < c.minBits {
		c.maxBits = c.minBits
	}
	return c
}

// Supports reports whether version is accepted by Decode.
func (c *Codec) Supports(version int) bool {
	_, ok := c.versions[version]
	return ok
}

// Checksum returns the upper hex SHA-256 over "<version>:<value>".
func Checksum(version int, value string) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(version) + Delimiter + value))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Encode renders t as QR text. It does not validate t.
func (c *Codec) Encode(t Encoded) string {
	var b strings.Builder
	b.Grow(len(t.Value) + len(t.Checksum) + 8)
	b.WriteString(strconv.Itoa(t.Version))
	b.WriteString(Delimiter)
	b.WriteString(t.Value)
	b.WriteString(Delimiter)
	b.WriteString(t.Checksum)
	return b.String()
}

// Decode parses QR text.
//
// The version ends at the first delimiter and the checksum starts after the
// last one, so a stray delimiter inside the value is reported as malformed
// data rather than as a field-count error.
func (c *Codec) Decode(text string) (Encoded, error) {
	if text == "" || len(text) > MaxEncodedLength {
		return Encoded{}, ErrInvalidFormat
	}
	first := strings.Index(text, Delimiter)
	last := strings.LastIndex(text, Delimiter)
	if first < 0 || first == last {
		return Encoded{}, ErrInvalidFormat
	}
	versionField := text[:first]
	value := text[first+1 : last]
	checksum := text[last+1:]

	version, ok := parseVersion(versionField)
	if !ok {
		return Encoded{}, ErrInvalidFormat
	}
	if !c.Supports(version) {
		return Encoded{}, ErrUnsupportedVersion
	}

	if len(checksum) != ChecksumLength || !isUpperHex(checksum) {
		return Encoded{}, ErrMalformedData
	}
	if !c.validValue(value) {
		return Encoded{}, ErrMalformedData
	}

	expected := Checksum(version, value)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(checksum)) != 1 {
		return Encoded{}, ErrInvalidChecksum
	}

	return Encoded{Version: version, Value: value, Checksum: checksum}, nil
}

// validValue checks the value alphabet and its decoded entropy.
func (c *Codec) validValue(value string) bool {
	if len(value) < EncodedLength(c.minBits) || len(value) > EncodedLength(c.maxBits) {
		return false
	}
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if !(ch >= 'A' && ch <= 'Z') && !(ch >= '2' && ch <= '7') {
			return false
		}
	}
	raw, err := Encoding.DecodeString(value)
	if err != nil {
		return false
	}
	bits := len(raw) * 8
	return bits >= c.minBits && bits <= c.maxBits
}

// parseVersion accepts canonical positive decimals only ("1", not "01" or "+1").
func parseVersion(s string) (int, bool) {
	if s == "" || len(s) > 9 || s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func isUpperHex(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !(ch >= '0' && ch <= '9') && !(ch >= 'A' && ch <= 'F') {
			return false
		}
	}
	return true
}
