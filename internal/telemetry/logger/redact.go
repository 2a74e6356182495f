package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// lookupKeyPrefix marks keyed token fingerprints. They are not secrets but
// still correlate scans, so logs carry a shortened form.
const lookupKeyPrefix = "qrlk_"

// redactedValue replaces values that must not appear in logs at all.
const redactedValue = "***REDACTED***"

// qrTextPattern matches anything shaped like QR token text, including
// corrupted scans, so a raw value is never written even under a neutral key.
var qrTextPattern = regexp.MustCompile(`\d{1,9}:[A-Za-z2-7=]{16,}:[0-9A-Fa-f]{16,}`)

// Key name fragments whose values are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"qr",
	"salt",
	"label",
	"credential",
	"dsn",
	"master",
	"bearer",
}

// redactSensitive is the ReplaceAttr hook installed on every handler.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		if qrTextPattern.MatchString(v) {
			return slog.String(a.Key, redactedValue)
		}
		if strings.HasPrefix(v, lookupKeyPrefix) {
			return slog.String(a.Key, maskValue(v, lookupKeyPrefix))
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// maskValue keeps the prefix plus the first and last four characters.
func maskValue(value, prefix string) string {
	body := value[len(prefix):]
	if len(body) <= 8 {
		return prefix + "***"
	}
	return prefix + body[:4] + "..." + body[len(body)-4:]
}

// RedactString masks a value before it is placed into a message string.
func RedactString(value string) string {
	if qrTextPattern.MatchString(value) {
		return redactedValue
	}
	if strings.HasPrefix(value, lookupKeyPrefix) {
		return maskValue(value, lookupKeyPrefix)
	}
	return value
}

// IsSensitiveKey reports whether an attribute key names secret material.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
