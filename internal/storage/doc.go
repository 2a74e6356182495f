// Package storage holds the persistent token store backed by Badger.
//
// Sibling packages provide the other service.TokenStore adapters:
//
//   - memory: sharded in-process maps, lost on restart
//   - redisstore: shared Redis keyspace with Lua-scripted writes
//   - postgres: relational table through sqlx
//
// Every adapter passes the storetest contract.
package storage
