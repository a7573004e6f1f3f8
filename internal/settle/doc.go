// Package settle provides the two timing primitives used by social login: a
// single-assignment Future whose first settler wins, and bounded readiness
// polling.
//
// # What this package must NOT do
//
//   - Start goroutines that outlive the call that created them.
//   - Deliver a value twice: a Future is resolved, timed out, or late, never
//     more than one of those.
package settle
