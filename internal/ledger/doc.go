// Package ledger defines the credit ledger contract: an atomic, per-principal,
// per-currency balance that gates whether generation work may proceed.
//
// Implementations must make TryDeduct atomic with respect to concurrent
// callers. Callers never read-then-write a balance to spend credits; they
// call TryDeduct and react to its boolean result. Balance exists for display
// and pre-flight planning only.
package ledger
