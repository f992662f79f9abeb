// Package store defines interfaces for data persistence operations on
// projects, items and principal profiles. The task queue reads and writes
// items only through these interfaces, so the persisted status mirror can
// live in any backing database.
package store
