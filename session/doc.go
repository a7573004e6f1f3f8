// Package session persists per-client session records and signup drafts in
// Redis.
//
// # Binary encoding
//
// Records are stored as a compact binary blob prefixed with a schema version
// byte. Version 1 is the only version today; Decode rejects unknown versions
// rather than guessing.
//
// # Architecture boundaries
//
// The Store knows nothing about routing beyond the role string it stores.
// Route guards read records through the middleware package; the coordinator
// writes them on successful login and deletes them on admin denial.
//
// # What this package must NOT do
//
//   - Import authflow (no upward imports).
//   - Store plaintext passwords. Session records never carry one, and a
//     draft only stores what its caller hands it; authflow seals the
//     signup password before it gets here.
package session
