package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

const sampleQR = "1:AJQGSJ2WZ5K3ZY3YWQ4M4UXJ7UTFYC2H2MB6CZTPGN6ZCOCG4TNA:" +
	"8F4AA5E0D3B0C7C44E1B5AB0E64D60C74BB5F9B6E3F3A4C8A6B0CE3F2C9E7D11"

func logOne(t *testing.T, args ...any) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("event", args...)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return entry
}

func TestRedact_QRTextUnderNeutralKey(t *testing.T) {
	entry := logOne(t, "input", sampleQR)
	if entry["input"] != redactedValue {
		t.Errorf("input = %v, want %s", entry["input"], redactedValue)
	}
}

func TestRedact_QRTextEmbedded(t *testing.T) {
	entry := logOne(t, "body", `{"qr_text":"`+sampleQR+`"}`)
	if strings.Contains(entry["body"].(string), "AJQGSJ2W") {
		t.Errorf("body leaked token value: %v", entry["body"])
	}
}

func TestRedact_LookupKey(t *testing.T) {
	key := "qrlk_" + strings.Repeat("ab", 32)
	entry := logOne(t, "lookup", key)
	if entry["lookup"] != "qrlk_abab...abab" {
		t.Errorf("lookup = %v, want qrlk_abab...abab", entry["lookup"])
	}
}

func TestRedact_SensitiveKeys(t *testing.T) {
	for _, key := range []string{"token", "qr_text", "salt", "label", "master_key", "postgres_dsn", "Password"} {
		t.Run(key, func(t *testing.T) {
			entry := logOne(t, key, "plain")
			if entry[key] != redactedValue {
				t.Errorf("%s = %v, want %s", key, entry[key], redactedValue)
			}
		})
	}
}

func TestRedact_PublicFieldsKept(t *testing.T) {
	entry := logOne(t, "record_id", "qrtk-01j9x2abcdefghjkmnpqrstvwx", "user_id", "u-42", "count", 3)
	if entry["record_id"] != "qrtk-01j9x2abcdefghjkmnpqrstvwx" {
		t.Errorf("record_id = %v", entry["record_id"])
	}
	if entry["user_id"] != "u-42" {
		t.Errorf("user_id = %v", entry["user_id"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v", entry["count"])
	}
}

func TestRedact_EmptySensitiveValue(t *testing.T) {
	entry := logOne(t, "token", "")
	if entry["token"] != "" {
		t.Errorf("token = %v, want empty", entry["token"])
	}
}

func TestRedact_GroupLeaf(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	l.Info("scan", slog.Group("req", "payload", sampleQR))
	if strings.Contains(buf.String(), "AJQGSJ2W") {
		t.Errorf("group attr leaked token value: %s", buf.String())
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{sampleQR, redactedValue},
		{"qrlk_" + strings.Repeat("0", 64), "qrlk_0000...0000"},
		{"qrlk_short", "qrlk_***"},
		{"hello", "hello"},
	}
	for _, tt := range tests {
		if got := RedactString(tt.in); got != tt.want {
			t.Errorf("RedactString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	if !IsSensitiveKey("QR_TEXT") {
		t.Error("IsSensitiveKey(QR_TEXT) = false")
	}
	if IsSensitiveKey("user_id") {
		t.Error("IsSensitiveKey(user_id) = true")
	}
}
