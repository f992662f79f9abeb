// Package redis provides Redis-backed infrastructure: a client constructor
// and a credit ledger whose check-and-decrement runs as a Lua script, so
// several API instances can share balances without a database round trip.
package redis
