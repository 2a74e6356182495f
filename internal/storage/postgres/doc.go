// Package postgres implements service.TokenStore on PostgreSQL through sqlx
// and lib/pq. Migrate creates the qr_tokens table when it is missing.
package postgres
