// Package token issues and verifies the signed session tokens that route
// guards read. Claims carry the user id, role and whether the profile is
// complete, so guards can decide a redirect without calling the auth service.
//
// Two algorithms are supported: Ed25519 (default) and HS256.
package token
