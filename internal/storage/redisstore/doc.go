// Package redisstore implements service.TokenStore on Redis.
//
// Layout, under a configurable key prefix:
//
//	<prefix>tok:<lookup_key>  hash {data: JSON record, revoked_at: RFC 3339}
//	<prefix>usr:<user_id>     sorted set of lookup keys scored by created_at (µs)
//
// The record JSON is written once. Revocation only adds the revoked_at
// field, so both writes are short Lua scripts and need no read-modify-write
// round trip.
package redisstore
