// Package memauth is an in-memory authflow.AuthService for demos and tests.
//
// Passwords are stored as argon2id hashes, user ids are random UUIDs and
// successful results carry a signed session token. Social logins map a
// provider token to a linked user.
//
// # What this package must NOT do
//
//   - Persist anything. Restarting the process loses every account.
package memauth
