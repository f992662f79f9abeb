//go:build integration

// Package testdb provides database helpers for integration tests. Tests
// that use it are skipped unless DATABASE_URL (or REELSMITH_TEST_DB_URL)
// points at a PostgreSQL instance; the embedded migrations are applied on
// first connection and each test runs inside a rolled-back transaction.
package testdb
