// Package logger provides structured logging for qrtoken.
//
// It wraps log/slog:
//
//   - logger.go: handler construction and the dynamic level
//   - context.go: context-carried loggers and request ids
//   - redact.go: masking of QR text, lookup keys and secrets
//
// Raw token values never reach a handler. Any string attribute shaped like
// QR text is replaced wholesale, lookup keys are shortened, and attributes
// whose key names a secret are redacted.
package logger
