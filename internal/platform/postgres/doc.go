// Package postgres provides the PostgreSQL implementations of the record
// store interfaces in internal/store and of the credit ledger in
// internal/ledger. It owns the schema (embedded goose migrations) and maps
// driver errors onto the store's sentinel errors.
package postgres
