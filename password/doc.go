// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsRehash] reports hashes produced with weaker parameters so
// sign-in can replace them after a successful verification.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goGuard package.
//   - Log plaintext passwords.
package password
