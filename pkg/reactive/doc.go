// Package reactive implements the observer substrate the store layer
// publishes through: signals (reactive value cells), memos (lazy cached
// derivations), effects (re-running observers), and scopes (ownership
// trees that dispose everything created under them).
//
// Reads inside a tracked context subscribe the current listener; writes
// notify subscribers, with Batch grouping and deduplicating notifications.
package reactive
