package token

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerator_Value(t *testing.T) {
	g := NewGenerator(nil)

	tests := []struct {
		name string
		bits int
		want int
	}{
		{"256 bits", 256, 52},
		{"384 bits", 384, 77},
		{"512 bits", 512, 103},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := g.Value(tt.bits)
			if err != nil {
				t.Fatalf("Value() error = %v", err)
			}
			if len(value) != tt.want {
				t.Errorf("len(Value()) = %d, want %d", len(value), tt.want)
			}
			raw, err := Encoding.DecodeString(value)
			if err != nil {
				t.Fatalf("Value() returned invalid base32: %v", err)
			}
			if len(raw)*8 != tt.bits {
				t.Errorf("decoded bits = %d, want %d", len(raw)*8, tt.bits)
			}
		})
	}
}

func TestGenerator_InvalidBits(t *testing.T) {
	g := NewGenerator(nil)
	for _, bits := range []int{0, -8, 255, 257} {
		if _, err := g.Value(bits); !errors.Is(err, ErrEntropyBits) {
			t.Errorf("Value(%d) error = %v, want ErrEntropyBits", bits, err)
		}
	}
}

func TestGenerator_Uniqueness(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		value, err := g.Value(DefaultEntropyBits)
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if _, dup := seen[value]; dup {
			t.Fatalf("Value() produced duplicate after %d draws", i)
		}
		seen[value] = struct{}{}
	}
}

type shortReader struct{}

func (shortReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestGenerator_ReaderFailure(t *testing.T) {
	g := NewGenerator(shortReader{})
	if _, err := g.Value(256); err == nil || !strings.Contains(err.Error(), "entropy exhausted") {
		t.Errorf("Value() error = %v, want wrapped reader error", err)
	}
}

func TestGenerateBytes(t *testing.T) {
	b, err := GenerateBytes(16)
	if err != nil {
		t.Fatalf("GenerateBytes() error = %v", err)
	}
	if len(b) != 16 {
		t.Errorf("len = %d, want 16", len(b))
	}
}
