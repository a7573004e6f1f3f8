// Package phone validates and canonicalizes user-entered phone numbers.
//
// Both functions are pure: they hold no state, never panic on malformed input,
// and may be called from any goroutine.
//
// # Normalization
//
// Normalize keeps digits and every '+' character and drops everything else.
// It never inserts a missing '+' prefix, even for long unprefixed numbers.
package phone
