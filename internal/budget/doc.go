// Package budget implements the pre-flight credit planning used before a
// batch of generation tasks is enqueued. Every function here is pure: it
// clips a requested batch to what the available balance can afford and
// reports whether the caller should show a hard stop, a partial-batch
// warning, or nothing at all.
package budget
