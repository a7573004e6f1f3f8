// Package rate implements the Redis-backed login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:lt:<identifier>  failed logins per identifier
//   - <prefix>:lti:<ip>         failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide what a throttled request looks like to the user.
//   - Be imported outside the authflow module.
package rate
