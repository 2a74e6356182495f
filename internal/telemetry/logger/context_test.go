package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, _ := New(DefaultConfig())
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext() did not return the stored logger")
	}
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext(empty) should fall back to Default()")
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want req-1", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext(empty) = %q, want empty", got)
	}
}

func TestL(t *testing.T) {
	tests := []struct {
		name      string
		requestID string
	}{
		{"with request id", "req-42"},
		{"without request id", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
			ctx := WithLogger(context.Background(), l)
			if tt.requestID != "" {
				ctx = WithRequestID(ctx, tt.requestID)
			}
			L(ctx).Info("scan")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			got, ok := entry["request_id"]
			if tt.requestID == "" && ok {
				t.Errorf("request_id = %v, want absent", got)
			}
			if tt.requestID != "" && got != tt.requestID {
				t.Errorf("request_id = %v, want %s", got, tt.requestID)
			}
		})
	}
}
