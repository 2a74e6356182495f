package service

import (
	"io"
	"time"

	"github.com/yndnr/qrtoken-go/internal/events"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/internal/telemetry/metric"
)

// LabelSealer encrypts token labels at rest. *adaptive.Sealer implements it.
type LabelSealer interface {
	Seal(plaintext, additionalData []byte) ([]byte, error)
	Open(sealed, additionalData []byte) ([]byte, error)
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithRandom sets the entropy source for token values.
func WithRandom(r io.Reader) Option {
	return func(m *TokenManager) { m.rand = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *TokenManager) { m.now = now }
}

// WithLogger sets the manager logger.
func WithLogger(l logger.Logger) Option {
	return func(m *TokenManager) { m.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metric.Recorder) Option {
	return func(m *TokenManager) { m.metrics = r }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *TokenManager) { m.events = p }
}

// WithLabelSealer enables labels. Without a sealer, labels are rejected.
func WithLabelSealer(s LabelSealer) Option {
	return func(m *TokenManager) { m.sealer = s }
}

// GenerateOption customizes one issuance.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	label string
	ttl   time.Duration
}

// WithLabel attaches a user-visible nickname, stored encrypted.
func WithLabel(label string) GenerateOption {
	return func(o *generateOptions) { o.label = label }
}

// WithTTL overrides the configured lifetime for one token.
func WithTTL(ttl time.Duration) GenerateOption {
	return func(o *generateOptions) { o.ttl = ttl }
}
