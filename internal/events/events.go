package events

import (
	"context"
	"time"
)

// Event types.
const (
	TypeTokenIssued       = "token.issued"
	TypeTokenRevoked      = "token.revoked"
	TypeUserTokensRevoked = "user.tokens_revoked"
	TypeTokensPruned      = "tokens.pruned"
)

// Event is one lifecycle notification.
type Event struct {
	Type       string    `json:"type"`
	RecordID   string    `json:"record_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	LookupKey  string    `json:"lookup_key,omitempty"`
	Count      int       `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
