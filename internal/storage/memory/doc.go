// Package memory provides an in-process TokenStore.
//
// Records live in a sharded map keyed by lookup key, with a secondary
// index from user id to that user's lookup keys in insertion order.
// Writes replace records instead of mutating them, so a record returned
// to a caller never changes underneath it.
//
// Nothing is persisted; the store is meant for tests, development and
// single-process deployments that accept losing tokens on restart.
package memory
