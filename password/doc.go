// Package password holds the signup password policy and the argon2id hasher
// used by the reference auth service.
//
// CheckStrength evaluates its rules in a fixed order and reports only the
// first one that fails, so the message shown to the user is deterministic.
//
// Hasher encodes hashes in PHC string format:
//
//	$argon2id$v=19$m=<KB>,t=<passes>,p=<lanes>$<salt b64>$<hash b64>
package password
