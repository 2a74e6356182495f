// Package events publishes token lifecycle events.
//
// Events describe what happened to a record (issued, revoked, pruned) by
// public identifiers only: record id, user id and lookup key. Raw values
// and QR text are never part of an event.
//
// KafkaPublisher writes JSON messages keyed by user id so one user's events
// stay ordered within a partition. Noop is used when no brokers are set.
package events
