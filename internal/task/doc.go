// Package task runs batch AI-generation jobs for a principal.
//
// Each principal owns one Queue: an ordered list of tasks drained by a single
// worker goroutine in strict insertion order. A task is credit-gated by its
// kind's Executor, mirrors its progress into the record store, and settles as
// completed, failed or cancelled. Observers read the queue through Snapshot
// and Subscribe and control it only through CancelQueue and ClearQueue.
//
// Cancellation is cooperative: pending tasks become cancelled at once, while
// a task whose backend call is already in flight is left to settle and its
// ledger and store side effects are still applied.
package task
